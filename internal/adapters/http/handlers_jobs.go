package http

import (
	"net/http"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) postJob(w http.ResponseWriter, r *http.Request) {
	var req contracts.PostJobRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "post_job", err)
		return
	}
	job, err := h.service.PostJob(r.Context(), actorFromRequest(r), application.PostJobInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Budget:      req.Budget,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "post_job", err)
		return
	}
	writeSuccess(w, http.StatusCreated, jobView(job))
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := h.service.ListJobs(r.Context(), actorFromRequest(r), application.ListJobsInput{
		Status:     q.Get("status"),
		EmployerID: q.Get("employer_id"),
		Limit:      parseIntDefault(q.Get("limit"), 20),
		Offset:     parseIntDefault(q.Get("offset"), 0),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "list_jobs", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"jobs": jobViews(jobs)})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(r.Context(), actorFromRequest(r), chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_job", err)
		return
	}
	writeSuccess(w, http.StatusOK, jobView(job))
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.CancelJob(r.Context(), actorFromRequest(r), chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "cancel_job", err)
		return
	}
	writeSuccess(w, http.StatusOK, jobView(job))
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var req contracts.ApplyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "apply", err)
		return
	}
	app, err := h.service.Apply(r.Context(), actorFromRequest(r), application.ApplyInput{
		JobID:     chi.URLParam(r, "job_id"),
		Name:      req.Name,
		Phone:     req.Phone,
		CoverNote: req.CoverNote,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "apply", err)
		return
	}
	writeSuccess(w, http.StatusCreated, applicationView(app))
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.ListApplications(r.Context(), actorFromRequest(r), chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "list_applications", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"applications": applicationViews(apps)})
}

func (h *Handler) listMyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.ListMyApplications(r.Context(), actorFromRequest(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_my_applications", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"applications": applicationViews(apps)})
}

func (h *Handler) acceptApplication(w http.ResponseWriter, r *http.Request) {
	app, job, err := h.service.AcceptApplication(r.Context(), actorFromRequest(r), chi.URLParam(r, "application_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "accept_application", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"application": applicationView(app),
		"job":         jobView(job),
	})
}

func (h *Handler) rejectApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.RejectApplication(r.Context(), actorFromRequest(r), chi.URLParam(r, "application_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "reject_application", err)
		return
	}
	writeSuccess(w, http.StatusOK, applicationView(app))
}
