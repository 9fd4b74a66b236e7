package application

import (
	"log/slog"
	"time"

	"github.com/craftsmart/escrow-service/internal/ports"
)

type Service struct {
	cfg             Config
	jobs            ports.JobRepository
	applications    ports.ApplicationRepository
	transactions    ports.TransactionRepository
	paymentLogs     ports.PaymentLogRepository
	reports         ports.ReportRepository
	blacklist       ports.BlacklistRepository
	transitions     ports.TransitionStore
	outbox          ports.OutboxRepository
	idempotency     ports.IdempotencyRepository
	eventDedup      ports.EventDedupRepository
	locks           ports.LockManager
	gateway         ports.PaymentGateway
	webhookVerifier ports.WebhookVerifier
	webhookParser   ports.WebhookParser
	tokenVerifier   ports.TokenVerifier
	logger          *slog.Logger
	nowFn           func() time.Time
}

type Dependencies struct {
	Config          Config
	Jobs            ports.JobRepository
	Applications    ports.ApplicationRepository
	Transactions    ports.TransactionRepository
	PaymentLogs     ports.PaymentLogRepository
	Reports         ports.ReportRepository
	Blacklist       ports.BlacklistRepository
	Transitions     ports.TransitionStore
	Outbox          ports.OutboxRepository
	Idempotency     ports.IdempotencyRepository
	EventDedup      ports.EventDedupRepository
	Locks           ports.LockManager
	Gateway         ports.PaymentGateway
	WebhookVerifier ports.WebhookVerifier
	WebhookParser   ports.WebhookParser
	TokenVerifier   ports.TokenVerifier
	Logger          *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "craftsmart-escrow-service"
	}
	if cfg.Currency == "" {
		cfg.Currency = "UGX"
	}
	if cfg.CommissionRateBps <= 0 {
		cfg.CommissionRateBps = 1000
	}
	if cfg.ChargeCap <= 0 {
		cfg.ChargeCap = 40000
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.ReconcileAge <= 0 {
		cfg.ReconcileAge = 10 * time.Minute
	}
	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = 50
	}
	if cfg.MaxDisbursementAttempts <= 0 {
		cfg.MaxDisbursementAttempts = 3
	}
	if cfg.PlatformName == "" {
		cfg.PlatformName = "CraftSmart"
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:             cfg,
		jobs:            deps.Jobs,
		applications:    deps.Applications,
		transactions:    deps.Transactions,
		paymentLogs:     deps.PaymentLogs,
		reports:         deps.Reports,
		blacklist:       deps.Blacklist,
		transitions:     deps.Transitions,
		outbox:          deps.Outbox,
		idempotency:     deps.Idempotency,
		eventDedup:      deps.EventDedup,
		locks:           deps.Locks,
		gateway:         deps.Gateway,
		webhookVerifier: deps.WebhookVerifier,
		webhookParser:   deps.WebhookParser,
		tokenVerifier:   deps.TokenVerifier,
		logger:          logger.With("service", cfg.ServiceName, "module", "application", "layer", "application"),
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the effective configuration after defaults were applied.
func (s *Service) Config() Config {
	return s.cfg
}
