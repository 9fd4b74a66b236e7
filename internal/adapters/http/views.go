package http

import (
	"time"

	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/contracts"
	"github.com/craftsmart/escrow-service/internal/domain"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func jobView(job domain.Job) contracts.JobResponse {
	return contracts.JobResponse{
		JobID:         job.JobID,
		Title:         job.Title,
		Description:   job.Description,
		Location:      job.Location,
		Budget:        job.Budget,
		EmployerID:    job.EmployerID,
		CraftsmanID:   job.CraftsmanID,
		CraftsmanName: job.CraftsmanName,
		Status:        string(job.Status),
		CreatedAt:     formatTime(job.CreatedAt),
		UpdatedAt:     formatTime(job.UpdatedAt),
	}
}

func jobViews(jobs []domain.Job) []contracts.JobResponse {
	out := make([]contracts.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobView(job))
	}
	return out
}

// applicationView omits the craftsman phone; it is only shared once the job is funded.
func applicationView(app domain.Application) contracts.ApplicationResponse {
	return contracts.ApplicationResponse{
		ApplicationID: app.ApplicationID,
		JobID:         app.JobID,
		CraftsmanID:   app.CraftsmanID,
		CraftsmanName: app.CraftsmanName,
		CoverNote:     app.CoverNote,
		Status:        string(app.Status),
		CreatedAt:     formatTime(app.CreatedAt),
	}
}

func applicationViews(apps []domain.Application) []contracts.ApplicationResponse {
	out := make([]contracts.ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, applicationView(app))
	}
	return out
}

func transactionView(tx domain.Transaction) contracts.TransactionResponse {
	view := contracts.TransactionResponse{
		TransactionID:         tx.TransactionID,
		Type:                  string(tx.Type),
		JobID:                 tx.JobID,
		EmployerID:            tx.EmployerID,
		CraftsmanID:           tx.CraftsmanID,
		TotalAmount:           tx.TotalAmount,
		CommissionAmount:      tx.CommissionAmount,
		DisbursementAmount:    tx.DisbursementAmount,
		Currency:              tx.Currency,
		PaymentMethod:         tx.PaymentMethod,
		Provider:              tx.Provider,
		PaymentReference:      tx.PaymentReference,
		ExternalTransactionID: tx.ExternalTransactionID,
		DisbursementReference: tx.DisbursementReference,
		ConfirmedBy:           tx.ConfirmedBy,
		Status:                string(tx.Status),
		LastError:             tx.LastError,
		CreatedAt:             formatTime(tx.CreatedAt),
		UpdatedAt:             formatTime(tx.UpdatedAt),
	}
	if tx.PaidAt != nil {
		view.PaidAt = formatTime(*tx.PaidAt)
	}
	return view
}

func transactionViews(txs []domain.Transaction) []contracts.TransactionResponse {
	out := make([]contracts.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionView(tx))
	}
	return out
}

func paymentStatusView(status application.PaymentStatus) contracts.PaymentStatusResponse {
	logs := make([]contracts.PaymentLogResponse, 0, len(status.Logs))
	for _, entry := range status.Logs {
		logs = append(logs, contracts.PaymentLogResponse{
			Action:       entry.Action,
			Status:       entry.Status,
			ErrorMessage: entry.ErrorMessage,
			CreatedAt:    formatTime(entry.CreatedAt),
		})
	}
	return contracts.PaymentStatusResponse{Transaction: transactionView(status.Transaction), Logs: logs}
}

func reportView(report domain.Report) contracts.ReportResponse {
	return contracts.ReportResponse{
		ReportID:    report.ReportID,
		JobID:       report.JobID,
		FromRole:    report.FromRole,
		EmployerID:  report.EmployerID,
		CraftsmanID: report.CraftsmanID,
		Subject:     report.Subject,
		Message:     report.Message,
		Seen:        report.Seen,
		CreatedAt:   formatTime(report.CreatedAt),
	}
}

func summaryView(summary domain.PlatformSummary) contracts.PlatformSummaryResponse {
	return contracts.PlatformSummaryResponse{
		TotalPlatformFees:    summary.TotalPlatformFees,
		Withdrawn:            summary.Withdrawn,
		AvailableForWithdraw: summary.AvailableForWithdraw,
		Currency:             summary.Currency,
	}
}
