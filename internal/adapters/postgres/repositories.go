package postgres

import (
	"github.com/craftsmart/escrow-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Jobs         ports.JobRepository
	Applications ports.ApplicationRepository
	Transactions ports.TransactionRepository
	PaymentLogs  ports.PaymentLogRepository
	Reports      ports.ReportRepository
	Blacklist    ports.BlacklistRepository
	Transitions  ports.TransitionStore
	Outbox       ports.OutboxRepository
	Idempotency  ports.IdempotencyRepository
	EventDedup   ports.EventDedupRepository
}

// NewRepositories wires every repository over one pool. cipher may be nil to store phone numbers in clear.
func NewRepositories(db *gorm.DB, cipher ports.FieldCipher) Repositories {
	sealer := phoneSealer{cipher: cipher}
	return Repositories{
		Jobs:         &jobRepository{db: db, sealer: sealer},
		Applications: &applicationRepository{db: db, sealer: sealer},
		Transactions: &transactionRepository{db: db, sealer: sealer},
		PaymentLogs:  &paymentLogRepository{db: db},
		Reports:      &reportRepository{db: db},
		Blacklist:    &blacklistRepository{db: db},
		Transitions:  &transitionStore{db: db, sealer: sealer},
		Outbox:       &outboxRepository{db: db},
		Idempotency:  &idempotencyRepository{db: db},
		EventDedup:   &eventDedupRepository{db: db},
	}
}

func insertEvents(tx *gorm.DB, events []ports.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]outboxModel, 0, len(events))
	for _, event := range events {
		rows = append(rows, toOutboxModel(event))
	}
	return tx.Create(&rows).Error
}

func paged(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
