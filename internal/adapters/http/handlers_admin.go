package http

import (
	"net/http"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) adminConfirmRelease(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.AdminConfirmRelease(r.Context(), actorFromRequest(r), chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "admin_confirm_release", err)
		return
	}
	writeSuccess(w, http.StatusOK, releaseView(res))
}

func (h *Handler) refundEscrow(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.RefundEscrow(r.Context(), actorFromRequest(r), chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "refund_escrow", err)
		return
	}
	writeSuccess(w, http.StatusOK, releaseView(res))
}

func (h *Handler) withdrawFees(w http.ResponseWriter, r *http.Request) {
	var req contracts.WithdrawFeesRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "withdraw_fees", err)
		return
	}
	tx, err := h.service.WithdrawFees(r.Context(), actorFromRequest(r), application.WithdrawFeesInput{
		Amount: req.Amount,
		Phone:  req.Phone,
		Name:   req.Name,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "withdraw_fees", err)
		return
	}
	writeSuccess(w, http.StatusCreated, transactionView(tx))
}

func (h *Handler) platformSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.PlatformSummary(r.Context(), actorFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "platform_summary", err)
		return
	}
	writeSuccess(w, http.StatusOK, summaryView(summary))
}

func (h *Handler) escrowJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.EscrowJobs(r.Context(), actorFromRequest(r), parseIntDefault(q.Get("limit"), 20), parseIntDefault(q.Get("offset"), 0))
	if err != nil {
		writeMappedError(r.Context(), w, "escrow_jobs", err)
		return
	}
	out := make([]contracts.EscrowJobResponse, 0, len(items))
	for _, item := range items {
		out = append(out, contracts.EscrowJobResponse{Job: jobView(item.Job), Transaction: transactionView(item.Transaction)})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"escrow": out})
}

func (h *Handler) completedPayouts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := h.service.CompletedPayouts(r.Context(), actorFromRequest(r), parseIntDefault(q.Get("limit"), 20), parseIntDefault(q.Get("offset"), 0))
	if err != nil {
		writeMappedError(r.Context(), w, "completed_payouts", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"payouts": transactionViews(txs)})
}

func (h *Handler) adminActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.service.AdminActions(r.Context(), actorFromRequest(r), parseIntDefault(r.URL.Query().Get("limit"), 20))
	if err != nil {
		writeMappedError(r.Context(), w, "admin_actions", err)
		return
	}
	out := make([]contracts.AdminActionResponse, 0, len(actions))
	for _, action := range actions {
		out = append(out, contracts.AdminActionResponse{
			Type:          action.Type,
			TransactionID: action.TransactionID,
			JobID:         action.JobID,
			Amount:        action.Amount,
			Reference:     action.Reference,
			Status:        string(action.Status),
			OccurredAt:    formatTime(action.OccurredAt),
		})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"actions": out})
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context(), actorFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "dashboard_stats", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.DashboardStatsResponse{
		TotalTransactions:     stats.TotalTransactions,
		TotalRevenue:          stats.TotalRevenue,
		TotalCommission:       stats.TotalCommission,
		CompletedTransactions: stats.CompletedTransactions,
		PaidOutTransactions:   stats.PaidOutTransactions,
		Currency:              stats.Currency,
	})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := h.service.ListTransactions(r.Context(), actorFromRequest(r), application.ListTransactionsInput{
		Status: q.Get("status"),
		Limit:  parseIntDefault(q.Get("limit"), 20),
		Offset: parseIntDefault(q.Get("offset"), 0),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "list_transactions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"transactions": transactionViews(txs)})
}
