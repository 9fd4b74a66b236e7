package memory

import (
	"context"
	"sort"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

type TransactionRepository struct{ s *store }

func (r *TransactionRepository) GetByID(_ context.Context, transactionID string) (domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.transactions[transactionID]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return tx, nil
}

func (r *TransactionRepository) GetByPaymentReference(_ context.Context, reference string) (domain.Transaction, error) {
	return r.find(func(tx domain.Transaction) bool { return reference != "" && tx.PaymentReference == reference })
}

func (r *TransactionRepository) GetByDisbursementReference(_ context.Context, reference string) (domain.Transaction, error) {
	return r.find(func(tx domain.Transaction) bool { return reference != "" && tx.DisbursementReference == reference })
}

func (r *TransactionRepository) GetEscrowByJob(_ context.Context, jobID string) (domain.Transaction, error) {
	return r.find(func(tx domain.Transaction) bool {
		return tx.Type == domain.TransactionTypeEscrow && tx.JobID == jobID
	})
}

func (r *TransactionRepository) find(match func(domain.Transaction) bool) (domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tx := range r.s.transactions {
		if match(tx) {
			return tx, nil
		}
	}
	return domain.Transaction{}, domain.ErrNotFound
}

func (r *TransactionRepository) List(_ context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.filterLocked(filter)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *TransactionRepository) Count(_ context.Context, filter ports.TransactionFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filterLocked(filter))), nil
}

func (r *TransactionRepository) SumAmounts(_ context.Context, filter ports.TransactionFilter) (int64, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total, commission int64
	for _, tx := range r.filterLocked(filter) {
		total += tx.TotalAmount
		commission += tx.CommissionAmount
	}
	return total, commission, nil
}

func (r *TransactionRepository) filterLocked(filter ports.TransactionFilter) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for _, tx := range r.s.transactions {
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.EmployerID != "" && tx.EmployerID != filter.EmployerID {
			continue
		}
		if filter.ConfirmedBy != "" && tx.ConfirmedBy != filter.ConfirmedBy {
			continue
		}
		if filter.UpdatedBefore != nil && !tx.UpdatedAt.Before(*filter.UpdatedBefore) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

type PaymentLogRepository struct{ s *store }

func (r *PaymentLogRepository) Append(_ context.Context, entry domain.PaymentLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.paymentLogs = append(r.s.paymentLogs, entry)
	return nil
}

func (r *PaymentLogRepository) ListByTransaction(_ context.Context, transactionID string) ([]domain.PaymentLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.PaymentLog, 0)
	for _, entry := range r.s.paymentLogs {
		if entry.TransactionID == transactionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// TransitionStore applies a ports.Transition with the same version checks as the SQL store.
type TransitionStore struct{ s *store }

func (t *TransitionStore) Commit(_ context.Context, tr ports.Transition) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if tr.Job != nil {
		current, ok := t.s.jobs[tr.Job.JobID]
		if !ok {
			return domain.ErrNotFound
		}
		if current.Version != tr.Job.Version {
			return domain.ErrConcurrentUpdate
		}
	}
	if tr.Transaction != nil {
		current, ok := t.s.transactions[tr.Transaction.TransactionID]
		if !ok {
			return domain.ErrNotFound
		}
		if current.Version != tr.Transaction.Version {
			return domain.ErrConcurrentUpdate
		}
	}
	if tr.NewTransaction != nil {
		if _, ok := t.s.transactions[tr.NewTransaction.TransactionID]; ok {
			return domain.ErrConflict
		}
		if tr.NewTransaction.Type == domain.TransactionTypeEscrow {
			for _, tx := range t.s.transactions {
				if tx.Type == domain.TransactionTypeEscrow && tx.JobID == tr.NewTransaction.JobID {
					return domain.ErrConflict
				}
			}
		}
	}
	if tr.Decision != nil {
		app, ok := t.s.applications[tr.Decision.AcceptedApplicationID]
		if !ok || app.JobID != tr.Decision.JobID {
			return domain.ErrNotFound
		}
		if app.Status != domain.ApplicationStatusPending {
			return domain.ErrConcurrentUpdate
		}
	}
	for _, event := range tr.Events {
		if _, ok := t.s.outbox[event.EventID.String()]; ok {
			return domain.ErrConflict
		}
	}

	if tr.Job != nil {
		tr.Job.Version++
		t.s.jobs[tr.Job.JobID] = *tr.Job
	}
	if tr.Transaction != nil {
		tr.Transaction.Version++
		t.s.transactions[tr.Transaction.TransactionID] = *tr.Transaction
	}
	if tr.NewTransaction != nil {
		tr.NewTransaction.Version = 1
		t.s.transactions[tr.NewTransaction.TransactionID] = *tr.NewTransaction
	}
	if tr.Decision != nil {
		for id, app := range t.s.applications {
			if app.JobID != tr.Decision.JobID || app.Status != domain.ApplicationStatusPending {
				continue
			}
			app.Status = domain.ApplicationStatusRejected
			if id == tr.Decision.AcceptedApplicationID {
				app.Status = domain.ApplicationStatusAccepted
			}
			app.UpdatedAt = tr.Decision.DecidedAt
			t.s.applications[id] = app
		}
	}
	t.s.paymentLogs = append(t.s.paymentLogs, tr.Logs...)
	return t.s.enqueueLocked(tr.Events)
}
