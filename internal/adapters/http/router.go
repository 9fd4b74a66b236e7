package http

import (
	"context"
	"net/http"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/go-chi/chi/v5"
)

// ReadinessCheck reports whether backing stores are reachable.
type ReadinessCheck func(ctx context.Context) error

// Handler is the HTTP adapter entrypoint for escrow use-cases.
type Handler struct {
	service *application.Service
	ready   ReadinessCheck
}

func NewHandler(service *application.Service, ready ReadinessCheck) *Handler {
	return &Handler{service: service, ready: ready}
}

// NewRouter registers the escrow HTTP routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Post("/payments/v1/webhooks/flutterwave", handler.flutterwaveWebhook)
	r.Get("/public/v1/blacklist", handler.publicBlacklist)

	r.Group(func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Route("/jobs/v1", func(r chi.Router) {
			r.Post("/jobs", handler.postJob)
			r.Get("/jobs", handler.listJobs)
			r.Get("/jobs/{job_id}", handler.getJob)
			r.Post("/jobs/{job_id}/cancel", handler.cancelJob)
			r.Post("/jobs/{job_id}/applications", handler.apply)
			r.Get("/jobs/{job_id}/applications", handler.listApplications)
			r.Get("/applications/mine", handler.listMyApplications)
			r.Post("/applications/{application_id}/accept", handler.acceptApplication)
			r.Post("/applications/{application_id}/reject", handler.rejectApplication)
		})

		r.Route("/payments/v1", func(r chi.Router) {
			r.Post("/jobs/{job_id}/initiate", handler.initiatePayment)
			r.Post("/jobs/{job_id}/confirm", handler.confirmRelease)
			r.Post("/transactions/{transaction_id}/verify", handler.verifyPayment)
			r.Get("/transactions/{transaction_id}", handler.paymentStatus)
			r.Get("/history", handler.paymentHistory)
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Post("/jobs/{job_id}/confirm", handler.adminConfirmRelease)
			r.Post("/jobs/{job_id}/refund", handler.refundEscrow)
			r.Post("/fees/withdraw", handler.withdrawFees)
			r.Get("/summary", handler.platformSummary)
			r.Get("/escrow", handler.escrowJobs)
			r.Get("/payouts", handler.completedPayouts)
			r.Get("/actions", handler.adminActions)
			r.Get("/stats", handler.dashboardStats)
			r.Get("/transactions", handler.listTransactions)
			r.Post("/blacklist", handler.addToBlacklist)
			r.Get("/blacklist", handler.listBlacklist)
			r.Delete("/blacklist/{entry_id}", handler.removeFromBlacklist)
		})

		r.Route("/reports/v1", func(r chi.Router) {
			r.Post("/jobs/{job_id}/reports", handler.fileReport)
			r.Get("/reports", handler.listReports)
			r.Post("/reports/{report_id}/seen", handler.markReportSeen)
		})
	})

	return r
}
