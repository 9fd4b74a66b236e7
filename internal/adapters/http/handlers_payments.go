package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req contracts.InitiatePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "initiate_payment", err)
		return
	}
	res, err := h.service.InitiatePayment(r.Context(), actorFromRequest(r), application.InitiatePaymentInput{
		JobID:         chi.URLParam(r, "job_id"),
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		EmployerPhone: req.EmployerPhone,
		Email:         req.Email,
		FullName:      req.FullName,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "initiate_payment", err)
		return
	}
	writeSuccess(w, http.StatusCreated, contracts.InitiatePaymentResponse{
		TransactionID:    res.Transaction.TransactionID,
		TxRef:            res.Transaction.PaymentReference,
		GatewayReference: res.GatewayReference,
		Status:           string(res.Transaction.Status),
		RedirectURL:      res.RedirectURL,
		Amount:           res.Transaction.TotalAmount,
		Currency:         res.Transaction.Currency,
	})
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.VerifyPayment(r.Context(), actorFromRequest(r), chi.URLParam(r, "transaction_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "verify_payment", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.VerifyPaymentResponse{
		Transaction:   transactionView(res.Transaction),
		GatewayStatus: res.GatewayStatus,
		GatewayID:     res.GatewayID,
	})
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetPaymentStatus(r.Context(), actorFromRequest(r), chi.URLParam(r, "transaction_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "payment_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, paymentStatusView(status))
}

func (h *Handler) confirmRelease(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ConfirmRelease(r.Context(), actorFromRequest(r), chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "confirm_release", err)
		return
	}
	writeSuccess(w, http.StatusOK, releaseView(res))
}

func releaseView(res application.ReleaseResult) contracts.ReleaseResponse {
	return contracts.ReleaseResponse{Transaction: transactionView(res.Transaction), JobStatus: string(res.JobStatus)}
}

// flutterwaveWebhook is unauthenticated; the service checks the gateway signature.
func (h *Handler) flutterwaveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
	if err != nil {
		writeValidationError(r.Context(), w, "receive_webhook", err)
		return
	}
	if len(body) > maxWebhookBytes {
		writeValidationError(r.Context(), w, "receive_webhook", errors.New("webhook body too large"))
		return
	}
	signature := r.Header.Get("x-signature")
	if signature == "" {
		signature = r.Header.Get("signature")
	}
	res, err := h.service.ReceiveWebhook(r.Context(), application.WebhookInput{
		Body: body,
		Signature: ports.WebhookSignature{
			VerifHash: r.Header.Get("verif-hash"),
			Signature: signature,
		},
		RequestID: requestIDFromContext(r.Context()),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "receive_webhook", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"event_id":  res.EventID,
		"duplicate": res.Duplicate,
		"queued":    res.Queued,
	})
}
