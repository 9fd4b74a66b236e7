package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"gorm.io/gorm"
)

// phoneSealer encrypts phone columns at rest. A nil cipher stores them as given.
type phoneSealer struct {
	cipher ports.FieldCipher
}

func (p phoneSealer) seal(scope, phone string) (string, error) {
	if p.cipher == nil || phone == "" {
		return phone, nil
	}
	out, err := p.cipher.Encrypt(scope, phone)
	if err != nil {
		return "", fmt.Errorf("encrypt phone: %w", err)
	}
	return out, nil
}

func (p phoneSealer) open(scope, stored string) (string, error) {
	if p.cipher == nil || stored == "" {
		return stored, nil
	}
	out, err := p.cipher.Decrypt(scope, stored)
	if err != nil {
		return "", fmt.Errorf("decrypt phone: %w", err)
	}
	return out, nil
}

func (p phoneSealer) toJobModel(job domain.Job) (jobModel, error) {
	phone, err := p.seal("job:"+job.JobID, job.CraftsmanPhone)
	if err != nil {
		return jobModel{}, err
	}
	return jobModel{
		JobID:          job.JobID,
		Title:          job.Title,
		Description:    job.Description,
		Location:       job.Location,
		Budget:         job.Budget,
		EmployerID:     job.EmployerID,
		CraftsmanID:    job.CraftsmanID,
		CraftsmanName:  job.CraftsmanName,
		CraftsmanPhone: phone,
		Status:         string(job.Status),
		Version:        job.Version,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}, nil
}

func (p phoneSealer) toDomainJob(row jobModel) (domain.Job, error) {
	phone, err := p.open("job:"+row.JobID, row.CraftsmanPhone)
	if err != nil {
		return domain.Job{}, err
	}
	return domain.Job{
		JobID:          row.JobID,
		Title:          row.Title,
		Description:    row.Description,
		Location:       row.Location,
		Budget:         row.Budget,
		EmployerID:     row.EmployerID,
		CraftsmanID:    row.CraftsmanID,
		CraftsmanName:  row.CraftsmanName,
		CraftsmanPhone: phone,
		Status:         domain.JobStatus(row.Status),
		Version:        row.Version,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (p phoneSealer) toApplicationModel(app domain.Application) (applicationModel, error) {
	phone, err := p.seal("application:"+app.ApplicationID, app.CraftsmanPhone)
	if err != nil {
		return applicationModel{}, err
	}
	return applicationModel{
		ApplicationID:  app.ApplicationID,
		JobID:          app.JobID,
		CraftsmanID:    app.CraftsmanID,
		CraftsmanName:  app.CraftsmanName,
		CraftsmanPhone: phone,
		CoverNote:      app.CoverNote,
		Status:         string(app.Status),
		CreatedAt:      app.CreatedAt,
		UpdatedAt:      app.UpdatedAt,
	}, nil
}

func (p phoneSealer) toDomainApplication(row applicationModel) (domain.Application, error) {
	phone, err := p.open("application:"+row.ApplicationID, row.CraftsmanPhone)
	if err != nil {
		return domain.Application{}, err
	}
	return domain.Application{
		ApplicationID:  row.ApplicationID,
		JobID:          row.JobID,
		CraftsmanID:    row.CraftsmanID,
		CraftsmanName:  row.CraftsmanName,
		CraftsmanPhone: phone,
		CoverNote:      row.CoverNote,
		Status:         domain.ApplicationStatus(row.Status),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (p phoneSealer) toTransactionModel(tx domain.Transaction) (transactionModel, error) {
	scope := "transaction:" + tx.TransactionID
	employerPhone, err := p.seal(scope, tx.EmployerPhone)
	if err != nil {
		return transactionModel{}, err
	}
	craftsmanPhone, err := p.seal(scope, tx.CraftsmanPhone)
	if err != nil {
		return transactionModel{}, err
	}
	return transactionModel{
		TransactionID:         tx.TransactionID,
		Type:                  string(tx.Type),
		JobID:                 tx.JobID,
		EmployerID:            tx.EmployerID,
		CraftsmanID:           tx.CraftsmanID,
		EmployerPhone:         employerPhone,
		CraftsmanPhone:        craftsmanPhone,
		TotalAmount:           tx.TotalAmount,
		CommissionAmount:      tx.CommissionAmount,
		DisbursementAmount:    tx.DisbursementAmount,
		Currency:              tx.Currency,
		PaymentMethod:         tx.PaymentMethod,
		Provider:              tx.Provider,
		PaymentReference:      tx.PaymentReference,
		ExternalTransactionID: tx.ExternalTransactionID,
		DisbursementReference: tx.DisbursementReference,
		TransferID:            tx.TransferID,
		ConfirmedBy:           tx.ConfirmedBy,
		DisbursementAttempts:  tx.DisbursementAttempts,
		LastError:             tx.LastError,
		Status:                string(tx.Status),
		Version:               tx.Version,
		WebhookReceivedAt:     tx.WebhookReceivedAt,
		PaidAt:                tx.PaidAt,
		CreatedAt:             tx.CreatedAt,
		UpdatedAt:             tx.UpdatedAt,
	}, nil
}

func (p phoneSealer) toDomainTransaction(row transactionModel) (domain.Transaction, error) {
	scope := "transaction:" + row.TransactionID
	employerPhone, err := p.open(scope, row.EmployerPhone)
	if err != nil {
		return domain.Transaction{}, err
	}
	craftsmanPhone, err := p.open(scope, row.CraftsmanPhone)
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		TransactionID:         row.TransactionID,
		Type:                  domain.TransactionType(row.Type),
		JobID:                 row.JobID,
		EmployerID:            row.EmployerID,
		CraftsmanID:           row.CraftsmanID,
		EmployerPhone:         employerPhone,
		CraftsmanPhone:        craftsmanPhone,
		TotalAmount:           row.TotalAmount,
		CommissionAmount:      row.CommissionAmount,
		DisbursementAmount:    row.DisbursementAmount,
		Currency:              row.Currency,
		PaymentMethod:         row.PaymentMethod,
		Provider:              row.Provider,
		PaymentReference:      row.PaymentReference,
		ExternalTransactionID: row.ExternalTransactionID,
		DisbursementReference: row.DisbursementReference,
		TransferID:            row.TransferID,
		ConfirmedBy:           row.ConfirmedBy,
		DisbursementAttempts:  row.DisbursementAttempts,
		LastError:             row.LastError,
		Status:                domain.TransactionStatus(row.Status),
		Version:               row.Version,
		WebhookReceivedAt:     row.WebhookReceivedAt,
		PaidAt:                row.PaidAt,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}, nil
}

func toPaymentLogModel(entry domain.PaymentLog) paymentLogModel {
	return paymentLogModel{
		LogID:         entry.LogID,
		TransactionID: entry.TransactionID,
		Action:        entry.Action,
		Status:        entry.Status,
		RequestData:   nullableJSON(entry.RequestData),
		ResponseData:  nullableJSON(entry.ResponseData),
		ErrorMessage:  entry.ErrorMessage,
		CreatedAt:     entry.CreatedAt,
	}
}

func toDomainPaymentLog(row paymentLogModel) domain.PaymentLog {
	out := domain.PaymentLog{
		LogID:         row.LogID,
		TransactionID: row.TransactionID,
		Action:        row.Action,
		Status:        row.Status,
		ErrorMessage:  row.ErrorMessage,
		CreatedAt:     row.CreatedAt,
	}
	if row.RequestData != nil {
		out.RequestData = json.RawMessage(*row.RequestData)
	}
	if row.ResponseData != nil {
		out.ResponseData = json.RawMessage(*row.ResponseData)
	}
	return out
}

func toReportModel(report domain.Report) reportModel {
	return reportModel{
		ReportID:    report.ReportID,
		JobID:       report.JobID,
		FromRole:    report.FromRole,
		EmployerID:  report.EmployerID,
		CraftsmanID: report.CraftsmanID,
		Subject:     report.Subject,
		Message:     report.Message,
		Seen:        report.Seen,
		CreatedAt:   report.CreatedAt,
	}
}

func toDomainReport(row reportModel) domain.Report {
	return domain.Report{
		ReportID:    row.ReportID,
		JobID:       row.JobID,
		FromRole:    row.FromRole,
		EmployerID:  row.EmployerID,
		CraftsmanID: row.CraftsmanID,
		Subject:     row.Subject,
		Message:     row.Message,
		Seen:        row.Seen,
		CreatedAt:   row.CreatedAt,
	}
}

func toOutboxModel(event ports.OutboxEvent) outboxModel {
	return outboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt,
	}
}

func toOutboxRecord(row outboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}

func nullableJSON(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func toBlacklistModel(entry domain.BlacklistEntry) blacklistModel {
	return blacklistModel{
		EntryID: entry.EntryID,
		Name:    entry.Name,
		MSISDN:  entry.MSISDN,
		Reason:  entry.Reason,
		AddedBy: entry.AddedBy,
		AddedAt: entry.AddedAt,
	}
}

func toDomainBlacklistEntry(row blacklistModel) domain.BlacklistEntry {
	return domain.BlacklistEntry{
		EntryID: row.EntryID,
		Name:    row.Name,
		MSISDN:  row.MSISDN,
		Reason:  row.Reason,
		AddedBy: row.AddedBy,
		AddedAt: row.AddedAt,
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
