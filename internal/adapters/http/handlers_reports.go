package http

import (
	"net/http"
	"strconv"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) fileReport(w http.ResponseWriter, r *http.Request) {
	var req contracts.FileReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "file_report", err)
		return
	}
	report, err := h.service.FileReport(r.Context(), actorFromRequest(r), application.FileReportInput{
		JobID:   chi.URLParam(r, "job_id"),
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "file_report", err)
		return
	}
	writeSuccess(w, http.StatusCreated, reportView(report))
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := application.ListReportsInput{
		JobID:  q.Get("job_id"),
		Limit:  parseIntDefault(q.Get("limit"), 20),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}
	if raw := q.Get("seen"); raw != "" {
		seen, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "list_reports", err)
			return
		}
		input.Seen = &seen
	}
	reports, err := h.service.ListReports(r.Context(), actorFromRequest(r), input)
	if err != nil {
		writeMappedError(r.Context(), w, "list_reports", err)
		return
	}
	out := make([]contracts.ReportResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, reportView(report))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"reports": out})
}

func (h *Handler) markReportSeen(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.MarkReportSeen(r.Context(), actorFromRequest(r), chi.URLParam(r, "report_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "mark_report_seen", err)
		return
	}
	writeSuccess(w, http.StatusOK, reportView(report))
}
