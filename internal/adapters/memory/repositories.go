package memory

import (
	"sync"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

// store holds every table behind one mutex so a transition commits atomically.
type store struct {
	mu           sync.Mutex
	jobs         map[string]domain.Job
	applications map[string]domain.Application
	transactions map[string]domain.Transaction
	paymentLogs  []domain.PaymentLog
	reports      map[string]domain.Report
	blacklist    map[string]domain.BlacklistEntry
	outbox       map[string]ports.OutboxRecord
	outboxOrder  []string
	idempotency  map[string]ports.IdempotencyRecord
	dedup        map[string]time.Time
}

type Repositories struct {
	Jobs         *JobRepository
	Applications *ApplicationRepository
	Transactions *TransactionRepository
	PaymentLogs  *PaymentLogRepository
	Reports      *ReportRepository
	Blacklist    *BlacklistRepository
	Transitions  *TransitionStore
	Outbox       *OutboxRepository
	Idempotency  *IdempotencyRepository
	EventDedup   *EventDedupRepository
}

func NewRepositories() *Repositories {
	s := &store{
		jobs:         map[string]domain.Job{},
		applications: map[string]domain.Application{},
		transactions: map[string]domain.Transaction{},
		reports:      map[string]domain.Report{},
		blacklist:    map[string]domain.BlacklistEntry{},
		outbox:       map[string]ports.OutboxRecord{},
		idempotency:  map[string]ports.IdempotencyRecord{},
		dedup:        map[string]time.Time{},
	}
	return &Repositories{
		Jobs:         &JobRepository{s: s},
		Applications: &ApplicationRepository{s: s},
		Transactions: &TransactionRepository{s: s},
		PaymentLogs:  &PaymentLogRepository{s: s},
		Reports:      &ReportRepository{s: s},
		Blacklist:    &BlacklistRepository{s: s},
		Transitions:  &TransitionStore{s: s},
		Outbox:       &OutboxRepository{s: s},
		Idempotency:  &IdempotencyRepository{s: s, nowFn: func() time.Time { return time.Now().UTC() }},
		EventDedup:   &EventDedupRepository{s: s},
	}
}

// enqueueLocked appends events to the outbox; callers hold s.mu.
func (s *store) enqueueLocked(events []ports.OutboxEvent) error {
	for _, event := range events {
		id := event.EventID.String()
		if _, ok := s.outbox[id]; ok {
			return domain.ErrConflict
		}
		s.outbox[id] = ports.OutboxRecord{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      append([]byte(nil), event.Payload...),
			CreatedAt:    event.OccurredAt,
		}
		s.outboxOrder = append(s.outboxOrder, id)
	}
	return nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
