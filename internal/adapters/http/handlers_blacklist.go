package http

import (
	"net/http"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) addToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req contracts.BlacklistRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "add_to_blacklist", err)
		return
	}
	entry, err := h.service.AddToBlacklist(r.Context(), actorFromRequest(r), application.BlacklistInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Reason: req.Reason,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "add_to_blacklist", err)
		return
	}
	writeSuccess(w, http.StatusCreated, blacklistView(entry))
}

func (h *Handler) listBlacklist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.service.ListBlacklist(r.Context(), actorFromRequest(r), parseIntDefault(q.Get("limit"), 20), parseIntDefault(q.Get("offset"), 0))
	if err != nil {
		writeMappedError(r.Context(), w, "list_blacklist", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"blacklist": blacklistViews(entries)})
}

func (h *Handler) removeFromBlacklist(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entry_id")
	if err := h.service.RemoveFromBlacklist(r.Context(), actorFromRequest(r), entryID); err != nil {
		writeMappedError(r.Context(), w, "remove_from_blacklist", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"entry_id": entryID, "removed": true})
}

func (h *Handler) publicBlacklist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.service.PublicBlacklist(r.Context(), parseIntDefault(q.Get("limit"), 20), parseIntDefault(q.Get("offset"), 0))
	if err != nil {
		writeMappedError(r.Context(), w, "public_blacklist", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"blacklist": blacklistViews(entries)})
}

func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.PaymentHistory(r.Context(), actorFromRequest(r), parseIntDefault(q.Get("limit"), 20), parseIntDefault(q.Get("offset"), 0))
	if err != nil {
		writeMappedError(r.Context(), w, "payment_history", err)
		return
	}
	out := make([]contracts.EscrowJobResponse, 0, len(items))
	for _, item := range items {
		out = append(out, contracts.EscrowJobResponse{Job: jobView(item.Job), Transaction: transactionView(item.Transaction)})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"payments": out})
}

func blacklistView(entry domain.BlacklistEntry) contracts.BlacklistEntryResponse {
	return contracts.BlacklistEntryResponse{
		EntryID: entry.EntryID,
		Name:    entry.Name,
		Phone:   entry.MSISDN,
		Reason:  entry.Reason,
		AddedBy: entry.AddedBy,
		AddedAt: formatTime(entry.AddedAt),
	}
}

func blacklistViews(entries []domain.BlacklistEntry) []contracts.BlacklistEntryResponse {
	out := make([]contracts.BlacklistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, blacklistView(entry))
	}
	return out
}
