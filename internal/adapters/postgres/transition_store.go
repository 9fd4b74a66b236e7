package postgres

import (
	"context"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"gorm.io/gorm"
)

type transitionStore struct {
	db     *gorm.DB
	sealer phoneSealer
}

// Commit writes a transition in one database transaction. Versioned rows use compare-and-set on version;
// a lost race rolls everything back with domain.ErrConcurrentUpdate.
func (s *transitionStore) Commit(ctx context.Context, t ports.Transition) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.Job != nil {
			if err := s.updateJob(tx, *t.Job); err != nil {
				return err
			}
		}
		if t.Transaction != nil {
			if err := s.updateTransaction(tx, *t.Transaction); err != nil {
				return err
			}
		}
		if t.NewTransaction != nil {
			next := *t.NewTransaction
			next.Version = 1
			rec, err := s.sealer.toTransactionModel(next)
			if err != nil {
				return err
			}
			if err := tx.Create(&rec).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrConflict
				}
				return err
			}
		}
		if t.Decision != nil {
			if err := applyDecision(tx, *t.Decision); err != nil {
				return err
			}
		}
		if len(t.Logs) > 0 {
			rows := make([]paymentLogModel, 0, len(t.Logs))
			for _, entry := range t.Logs {
				rows = append(rows, toPaymentLogModel(entry))
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		if err := insertEvents(tx, t.Events); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if t.Job != nil {
		t.Job.Version++
	}
	if t.Transaction != nil {
		t.Transaction.Version++
	}
	if t.NewTransaction != nil {
		t.NewTransaction.Version = 1
	}
	return nil
}

func (s *transitionStore) updateJob(tx *gorm.DB, job domain.Job) error {
	rec, err := s.sealer.toJobModel(job)
	if err != nil {
		return err
	}
	rec.Version = job.Version + 1
	res := tx.Model(&jobModel{}).
		Where("job_id = ?", job.JobID).
		Where("version = ?", job.Version).
		Select("*").
		Omit("job_id", "created_at").
		Updates(&rec)
	return casResult(tx, res, &jobModel{}, "job_id = ?", job.JobID)
}

func (s *transitionStore) updateTransaction(tx *gorm.DB, t domain.Transaction) error {
	rec, err := s.sealer.toTransactionModel(t)
	if err != nil {
		return err
	}
	rec.Version = t.Version + 1
	res := tx.Model(&transactionModel{}).
		Where("transaction_id = ?", t.TransactionID).
		Where("version = ?", t.Version).
		Select("*").
		Omit("transaction_id", "created_at").
		Updates(&rec)
	return casResult(tx, res, &transactionModel{}, "transaction_id = ?", t.TransactionID)
}

// casResult distinguishes a missing row from a stale version when an update matched nothing.
func casResult(tx *gorm.DB, res *gorm.DB, model any, where string, id string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var exists int64
	if err := tx.Model(model).Where(where, id).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConcurrentUpdate
}

func applyDecision(tx *gorm.DB, d ports.ApplicationDecision) error {
	res := tx.Model(&applicationModel{}).
		Where("application_id = ?", d.AcceptedApplicationID).
		Where("job_id = ?", d.JobID).
		Where("status = ?", string(domain.ApplicationStatusPending)).
		Updates(map[string]any{
			"status":     string(domain.ApplicationStatusAccepted),
			"updated_at": d.DecidedAt,
		})
	if err := casResult(tx, res, &applicationModel{}, "application_id = ?", d.AcceptedApplicationID); err != nil {
		return err
	}
	return tx.Model(&applicationModel{}).
		Where("job_id = ?", d.JobID).
		Where("application_id <> ?", d.AcceptedApplicationID).
		Where("status = ?", string(domain.ApplicationStatusPending)).
		Updates(map[string]any{
			"status":     string(domain.ApplicationStatusRejected),
			"updated_at": d.DecidedAt,
		}).Error
}
