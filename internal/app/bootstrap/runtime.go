package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	cacheadapter "github.com/craftsmart/escrow-service/internal/adapters/cache"
	eventadapter "github.com/craftsmart/escrow-service/internal/adapters/events"
	"github.com/craftsmart/escrow-service/internal/adapters/gateway"
	grpcadapter "github.com/craftsmart/escrow-service/internal/adapters/grpc"
	httpadapter "github.com/craftsmart/escrow-service/internal/adapters/http"
	"github.com/craftsmart/escrow-service/internal/adapters/memory"
	"github.com/craftsmart/escrow-service/internal/adapters/postgres"
	"github.com/craftsmart/escrow-service/internal/adapters/security"
	"github.com/craftsmart/escrow-service/internal/application"
	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/redis/go-redis/v9"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	signer     *security.JWTSigner
	httpServer *http.Server
	grpcServer *grpc.Server
	outbox     *eventadapter.OutboxWorker
	reconcile  *eventadapter.ReconcileWorker
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

// storage is the repository set the service runs on, independent of the driver.
type storage struct {
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

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping craftsmart escrow service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"storage_driver", cfg.StorageDriver,
		"payment_gateway", cfg.GatewayProvider,
	)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Runtime, error) {
		cleanup()
		return nil, err
	}

	var cipher ports.FieldCipher
	if cfg.PhoneEncryptionSecret != "" {
		fieldCipher, cipherErr := security.NewFieldCipher(cfg.PhoneEncryptionSecret)
		if cipherErr != nil {
			return nil, fmt.Errorf("init phone cipher: %w", cipherErr)
		}
		cipher = fieldCipher
	}

	var (
		repos  storage
		db     *gorm.DB
		checks []httpadapter.ReadinessCheck
	)
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		db, err = postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		closers = append(closers, func() { _ = postgres.Close(db) })
		if err := postgres.RunMigrations(ctx, db); err != nil {
			return fail(fmt.Errorf("run migrations: %w", err))
		}
		pg := postgres.NewRepositories(db, cipher)
		repos = storage(pg)
		sqlDB, sqlErr := db.DB()
		if sqlErr != nil {
			return fail(fmt.Errorf("gorm sql db: %w", sqlErr))
		}
		checks = append(checks, sqlDB.PingContext)
	default:
		logger.Warn("using in-memory storage; state is lost on restart")
		mem := memory.NewRepositories()
		repos = storage{
			Jobs:         mem.Jobs,
			Applications: mem.Applications,
			Transactions: mem.Transactions,
			PaymentLogs:  mem.PaymentLogs,
			Reports:      mem.Reports,
			Blacklist:    mem.Blacklist,
			Transitions:  mem.Transitions,
			Outbox:       mem.Outbox,
			Idempotency:  mem.Idempotency,
			EventDedup:   mem.EventDedup,
		}
	}

	var (
		locks      ports.LockManager
		tokenCache ports.TokenCache
	)
	if cfg.RedisURL != "" {
		redisClient, redisErr := cacheadapter.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			return fail(fmt.Errorf("connect redis: %w", redisErr))
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		locks = cacheadapter.NewRedisLockManager(redisClient)
		tokenCache = cacheadapter.NewRedisTokenCache(redisClient)
		checks = append(checks, redisPing(redisClient))
	} else {
		logger.Warn("redis not configured; disbursement locks are process-local")
		locks = memory.NewLockManager()
		tokenCache = memory.NewTokenCache()
	}

	tokenSigner, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err != nil {
		if !cfg.AllowEphemeralJWT {
			return fail(fmt.Errorf("init jwt signer: %w", err))
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		tokenSigner, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID)
		if err != nil {
			return fail(fmt.Errorf("init ephemeral jwt signer: %w", err))
		}
	}

	paymentGateway, err := newGateway(cfg, tokenCache)
	if err != nil {
		return fail(fmt.Errorf("init payment gateway: %w", err))
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:             cfg.ServiceID,
			Currency:                cfg.Currency,
			CommissionRateBps:       cfg.CommissionRateBps(),
			ChargeCap:               cfg.ChargeCap,
			IdempotencyTTL:          cfg.IdempotencyTTL,
			EventDedupTTL:           cfg.WebhookDedupTTL,
			LockTTL:                 cfg.DisbursementLockTTL,
			ReconcileAge:            cfg.ReconcileAge,
			ReconcileBatchSize:      cfg.ReconcileBatchSize,
			MaxDisbursementAttempts: cfg.MaxDisbursementAttempts,
			VerifyWebhooks:          cfg.VerifyWebhooks,
			AsyncWebhooks:           cfg.AsyncWebhooks,
		},
		Jobs:            repos.Jobs,
		Applications:    repos.Applications,
		Transactions:    repos.Transactions,
		PaymentLogs:     repos.PaymentLogs,
		Reports:         repos.Reports,
		Blacklist:       repos.Blacklist,
		Transitions:     repos.Transitions,
		Outbox:          repos.Outbox,
		Idempotency:     repos.Idempotency,
		EventDedup:      repos.EventDedup,
		Locks:           locks,
		Gateway:         paymentGateway,
		WebhookVerifier: security.NewWebhookVerifier(cfg.FlutterwaveWebhookHash, cfg.FlutterwaveHMACSecret),
		WebhookParser:   gateway.FlutterwaveWebhookParser{},
		TokenVerifier:   tokenSigner,
		Logger:          logger,
	})

	topics := map[string]string{domain.EventGatewayWebhookReceived: cfg.WebhookTopic}
	for eventType, topic := range cfg.OutboxTopics {
		topics[eventType] = topic
	}

	var (
		publisher ports.EventPublisher
		consumer  *eventadapter.ConsumerWorker
	)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, kafkaErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topics)
		if kafkaErr != nil {
			return fail(fmt.Errorf("init kafka publisher: %w", kafkaErr))
		}
		closers = append(closers, func() { _ = kafkaPublisher.Close() })
		publisher = kafkaPublisher

		if cfg.AsyncWebhooks {
			kafkaConsumer, consumerErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.ConsumerGroupID, []string{cfg.WebhookTopic})
			if consumerErr != nil {
				return fail(fmt.Errorf("init kafka consumer: %w", consumerErr))
			}
			closers = append(closers, func() { _ = kafkaConsumer.Close() })
			consumer = eventadapter.NewConsumerWorker(logger, kafkaConsumer, svc, cfg.OutboxPollInterval)
		}
	} else {
		logger.Warn("kafka not configured; outbox events are logged and webhooks settle in-process")
		publisher = eventadapter.NewLoggingPublisher(logger).WithLocalDispatch(svc, domain.EventGatewayWebhookReceived)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	reconcile := eventadapter.NewReconcileWorker(logger, svc, cfg.ReconcileInterval)

	handler := httpadapter.NewHandler(svc, readiness(checks))
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	apiKeys := security.NewAPIKeyVerifier(cfg.InternalAPIKeyHash)
	if !apiKeys.Enabled() {
		logger.Warn("internal gRPC API key not configured; internal calls are unauthenticated")
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcadapter.APIKeyInterceptor(apiKeys)))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewEscrowInternalServer(svc))

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		signer:     tokenSigner,
		httpServer: httpServer,
		grpcServer: grpcServer,
		outbox:     outbox,
		reconcile:  reconcile,
		consumer:   consumer,
		cleanupFn: func(context.Context) {
			cleanup()
		},
	}, nil
}

func newGateway(cfg Config, tokenCache ports.TokenCache) (*gateway.Router, error) {
	httpClient := &http.Client{Timeout: cfg.GatewayHTTPTimeout}
	retry := gateway.DefaultRetryPolicy()
	retry.Attempts = cfg.GatewayRetryAttempts
	retry.BaseDelay = cfg.GatewayRetryBaseDelay

	var flutterwave, mtn, airtel gateway.Provider
	if cfg.FlutterwaveSecretKey != "" {
		flutterwave = gateway.NewFlutterwaveClient(gateway.FlutterwaveConfig{
			BaseURL:     cfg.FlutterwaveBaseURL,
			SecretKey:   cfg.FlutterwaveSecretKey,
			RedirectURL: cfg.FlutterwaveRedirectURL,
		}, httpClient, retry)
	}
	if cfg.GatewayProvider == GatewayDirect {
		mtn = gateway.NewMTNClient(gateway.MTNConfig{
			BaseURL:                  cfg.MTNBaseURL,
			TargetEnvironment:        cfg.MTNTargetEnvironment,
			CallbackURL:              cfg.MTNCallbackURL,
			CollectionUserID:         cfg.MTNAPIUser,
			CollectionAPIKey:         cfg.MTNAPIKey,
			CollectionSubscription:   cfg.MTNSubscriptionKey,
			DisbursementUserID:       cfg.MTNAPIUser,
			DisbursementAPIKey:       cfg.MTNAPIKey,
			DisbursementSubscription: cfg.MTNDisbursementKey,
		}, tokenCache, httpClient, retry)
		airtel = gateway.NewAirtelClient(gateway.AirtelConfig{
			BaseURL:      cfg.AirtelBaseURL,
			ClientID:     cfg.AirtelClientID,
			ClientSecret: cfg.AirtelClientSecret,
			Currency:     cfg.Currency,
			EncryptedPIN: cfg.AirtelEncryptedPIN,
		}, tokenCache, httpClient, retry)
	}
	return gateway.NewRouter(cfg.GatewayProvider, flutterwave, mtn, airtel)
}

func redisPing(client *redis.Client) httpadapter.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func readiness(checks []httpadapter.ReadinessCheck) httpadapter.ReadinessCheck {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func (r *Runtime) Config() Config { return r.cfg }

func (r *Runtime) Logger() *slog.Logger { return r.logger }

func (r *Runtime) Service() *application.Service { return r.service }

func (r *Runtime) Signer() ports.TokenSigner { return r.signer }

// IssueToken mints a bearer token for local and operator use.
func (r *Runtime) IssueToken(subject, role, name string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}
	if !domain.IsKnownRole(role) {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now().UTC()
	return r.signer.Sign(ports.AuthClaims{
		SubjectID: subject,
		Role:      role,
		Name:      name,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		KeyID:     r.cfg.JWTKeyID,
	})
}

func (r *Runtime) Outbox() *eventadapter.OutboxWorker { return r.outbox }

// Close releases connections held by a runtime that never ran a loop.
func (r *Runtime) Close(ctx context.Context) {
	r.cleanupFn(ctx)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	// Memory storage is invisible to a separate worker process.
	if r.cfg.StorageDriver == StorageDriverMemory {
		go func() { _ = r.outbox.Run(ctx) }()
		go func() { _ = r.reconcile.Run(ctx) }()
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

// RunWorker runs the outbox relay, the reconcile loop and, with kafka async webhooks, the webhook consumer.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		r.logger.Info("outbox worker started")
		return r.outbox.Run(groupCtx)
	})
	group.Go(func() error {
		r.logger.Info("reconcile worker started", "interval", r.cfg.ReconcileInterval.String())
		return r.reconcile.Run(groupCtx)
	})
	if r.consumer != nil {
		group.Go(func() error {
			r.logger.Info("webhook consumer started", "topic", r.cfg.WebhookTopic)
			return r.consumer.Run(groupCtx)
		})
	}

	err := group.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
