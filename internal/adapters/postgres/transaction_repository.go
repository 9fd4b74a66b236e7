package postgres

import (
	"context"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db     *gorm.DB
	sealer phoneSealer
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID string) (domain.Transaction, error) {
	return r.take(ctx, "transaction_id = ?", transactionID)
}

func (r *transactionRepository) GetByPaymentReference(ctx context.Context, reference string) (domain.Transaction, error) {
	if reference == "" {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return r.take(ctx, "payment_reference = ?", reference)
}

func (r *transactionRepository) GetByDisbursementReference(ctx context.Context, reference string) (domain.Transaction, error) {
	if reference == "" {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return r.take(ctx, "disbursement_reference = ?", reference)
}

func (r *transactionRepository) GetEscrowByJob(ctx context.Context, jobID string) (domain.Transaction, error) {
	var rec transactionModel
	if err := r.db.WithContext(ctx).
		Where("type = ?", string(domain.TransactionTypeEscrow)).
		Where("job_id = ?", jobID).
		Take(&rec).Error; err != nil {
		return domain.Transaction{}, notFound(err)
	}
	return r.sealer.toDomainTransaction(rec)
}

func (r *transactionRepository) take(ctx context.Context, where string, arg string) (domain.Transaction, error) {
	var rec transactionModel
	if err := r.db.WithContext(ctx).Where(where, arg).Take(&rec).Error; err != nil {
		return domain.Transaction{}, notFound(err)
	}
	return r.sealer.toDomainTransaction(rec)
}

func (r *transactionRepository) List(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	var rows []transactionModel
	query := r.filtered(ctx, filter).Order("created_at DESC")
	if err := paged(query, filter.Limit, filter.Offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := r.sealer.toDomainTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *transactionRepository) Count(ctx context.Context, filter ports.TransactionFilter) (int64, error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *transactionRepository) SumAmounts(ctx context.Context, filter ports.TransactionFilter) (int64, int64, error) {
	var sums struct {
		Total      int64
		Commission int64
	}
	if err := r.filtered(ctx, filter).
		Select("COALESCE(SUM(total_amount), 0) AS total, COALESCE(SUM(commission_amount), 0) AS commission").
		Scan(&sums).Error; err != nil {
		return 0, 0, err
	}
	return sums.Total, sums.Commission, nil
}

func (r *transactionRepository) filtered(ctx context.Context, filter ports.TransactionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&transactionModel{})
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.EmployerID != "" {
		query = query.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.ConfirmedBy != "" {
		query = query.Where("confirmed_by = ?", filter.ConfirmedBy)
	}
	if filter.UpdatedBefore != nil {
		query = query.Where("updated_at < ?", *filter.UpdatedBefore)
	}
	return query
}

type paymentLogRepository struct {
	db *gorm.DB
}

func (r *paymentLogRepository) Append(ctx context.Context, entry domain.PaymentLog) error {
	rec := toPaymentLogModel(entry)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *paymentLogRepository) ListByTransaction(ctx context.Context, transactionID string) ([]domain.PaymentLog, error) {
	var rows []paymentLogModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PaymentLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainPaymentLog(row))
	}
	return out, nil
}
