package bootstrap

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	GatewayFlutterwave = "flutterwave"
	GatewayDirect      = "direct"
)

// Config is the resolved runtime configuration for the escrow service.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	StorageDriver   string
	DatabaseURL     string
	MaxDBConns      int32
	RedisURL        string
	KafkaBrokers    []string
	ConsumerGroupID string

	Currency                string
	CommissionRate          float64
	ChargeCap               int64
	IdempotencyTTL          time.Duration
	WebhookDedupTTL         time.Duration
	DisbursementLockTTL     time.Duration
	ReconcileInterval       time.Duration
	ReconcileAge            time.Duration
	ReconcileBatchSize      int
	MaxDisbursementAttempts int

	GatewayProvider        string
	FlutterwaveBaseURL     string
	FlutterwaveSecretKey   string
	FlutterwaveWebhookHash string
	FlutterwaveHMACSecret  string
	FlutterwaveRedirectURL string
	VerifyWebhooks         bool

	MTNBaseURL           string
	MTNSubscriptionKey   string
	MTNDisbursementKey   string
	MTNAPIUser           string
	MTNAPIKey            string
	MTNTargetEnvironment string
	MTNCallbackURL       string

	AirtelBaseURL      string
	AirtelClientID     string
	AirtelClientSecret string
	AirtelEncryptedPIN string

	GatewayHTTPTimeout    time.Duration
	GatewayRetryAttempts  int
	GatewayRetryBaseDelay time.Duration

	JWTPrivateKeyPEM      string
	JWTPublicKeyPEM       string
	JWTKeyID              string
	AllowEphemeralJWT     bool
	PhoneEncryptionSecret string
	InternalAPIKeyHash    string

	AsyncWebhooks bool
	WebhookTopic  string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
	OutboxTopics       map[string]string
}

// CommissionRateBps converts the configured fraction to basis points.
func (c Config) CommissionRateBps() int64 {
	return int64(math.Round(c.CommissionRate * 10000))
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		StorageDriver   string   `yaml:"storage_driver"`
		PostgresURL     string   `yaml:"postgres_url"`
		RedisURL        string   `yaml:"redis_url"`
		KafkaBrokers    []string `yaml:"kafka_brokers"`
		ConsumerGroupID string   `yaml:"consumer_group_id"`
	} `yaml:"dependencies"`
	Escrow struct {
		Currency                string  `yaml:"currency"`
		CommissionRate          float64 `yaml:"commission_rate"`
		ChargeCap               int64   `yaml:"charge_cap"`
		IdempotencyTTL          string  `yaml:"idempotency_ttl"`
		WebhookDedupTTL         string  `yaml:"webhook_dedup_ttl"`
		DisbursementLockTTL     string  `yaml:"disbursement_lock_ttl"`
		ReconcileInterval       string  `yaml:"reconcile_interval"`
		ReconcileAge            string  `yaml:"reconcile_age"`
		ReconcileBatchSize      int     `yaml:"reconcile_batch_size"`
		MaxDisbursementAttempts int     `yaml:"max_disbursement_attempts"`
	} `yaml:"escrow"`
	Gateway struct {
		Provider    string `yaml:"provider"`
		Flutterwave struct {
			BaseURL        string `yaml:"base_url"`
			SecretKey      string `yaml:"secret_key"`
			WebhookHash    string `yaml:"webhook_hash"`
			HMACSecret     string `yaml:"hmac_secret"`
			RedirectURL    string `yaml:"redirect_url"`
			VerifyWebhooks *bool  `yaml:"verify_webhooks"`
		} `yaml:"flutterwave"`
		MTN struct {
			BaseURL           string `yaml:"base_url"`
			SubscriptionKey   string `yaml:"subscription_key"`
			DisbursementKey   string `yaml:"disbursement_subscription_key"`
			APIUser           string `yaml:"api_user"`
			APIKey            string `yaml:"api_key"`
			TargetEnvironment string `yaml:"target_environment"`
			CallbackURL       string `yaml:"callback_url"`
		} `yaml:"mtn"`
		Airtel struct {
			BaseURL      string `yaml:"base_url"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			EncryptedPIN string `yaml:"encrypted_pin"`
		} `yaml:"airtel"`
		HTTPTimeout    string `yaml:"http_timeout"`
		RetryAttempts  int    `yaml:"retry_attempts"`
		RetryBaseDelay string `yaml:"retry_base_delay"`
	} `yaml:"gateway"`
	Security struct {
		JWTKeyID           string `yaml:"jwt_key_id"`
		AllowEphemeralJWT  *bool  `yaml:"allow_ephemeral_jwt"`
		InternalAPIKeyHash string `yaml:"internal_api_key_hash"`
	} `yaml:"security"`
	Webhooks struct {
		Async *bool  `yaml:"async"`
		Topic string `yaml:"topic"`
	} `yaml:"webhooks"`
	Outbox struct {
		PollInterval string            `yaml:"poll_interval"`
		BatchSize    int               `yaml:"batch_size"`
		ClaimTTL     string            `yaml:"claim_ttl"`
		MaxRetries   int               `yaml:"max_retries"`
		Topics       map[string]string `yaml:"topics"`
	} `yaml:"outbox"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error; secrets are expected from the environment.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:               "craftsmart-escrow-service",
		HTTPPort:                8080,
		GRPCPort:                9090,
		StorageDriver:           StorageDriverPostgres,
		MaxDBConns:              20,
		ConsumerGroupID:         "craftsmart-escrow-webhooks",
		Currency:                "UGX",
		CommissionRate:          0.10,
		ChargeCap:               40000,
		IdempotencyTTL:          7 * 24 * time.Hour,
		WebhookDedupTTL:         7 * 24 * time.Hour,
		DisbursementLockTTL:     2 * time.Minute,
		ReconcileInterval:       time.Minute,
		ReconcileAge:            10 * time.Minute,
		ReconcileBatchSize:      50,
		MaxDisbursementAttempts: 3,
		GatewayProvider:         GatewayFlutterwave,
		FlutterwaveBaseURL:      "https://api.flutterwave.com",
		VerifyWebhooks:          true,
		MTNBaseURL:              "https://sandbox.momodeveloper.mtn.com",
		MTNTargetEnvironment:    "sandbox",
		AirtelBaseURL:           "https://openapiuat.airtel.africa",
		GatewayHTTPTimeout:      15 * time.Second,
		GatewayRetryAttempts:    3,
		GatewayRetryBaseDelay:   200 * time.Millisecond,
		JWTKeyID:                "craftsmart-escrow-key-1",
		AllowEphemeralJWT:       true,
		AsyncWebhooks:           false,
		WebhookTopic:            "gateway.webhook_received",
		OutboxPollInterval:      2 * time.Second,
		OutboxBatchSize:         100,
		OutboxClaimTTL:          30 * time.Second,
		OutboxMaxRetries:        5,
		OutboxTopics:            map[string]string{},
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if applyErr := applyFile(&cfg, f); applyErr != nil {
			return Config{}, applyErr
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(envOrDefault("STORAGE_DRIVER", cfg.StorageDriver)))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.ConsumerGroupID = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.ConsumerGroupID)

	cfg.Currency = envOrDefault("ESCROW_CURRENCY", cfg.Currency)
	cfg.CommissionRate = envFloat("COMMISSION_RATE", cfg.CommissionRate)
	cfg.ChargeCap = int64(envInt("CHARGE_CAP", int(cfg.ChargeCap)))
	cfg.IdempotencyTTL = envDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.WebhookDedupTTL = envDuration("WEBHOOK_DEDUP_TTL", cfg.WebhookDedupTTL)
	cfg.DisbursementLockTTL = envDuration("DISBURSEMENT_LOCK_TTL", cfg.DisbursementLockTTL)
	cfg.ReconcileInterval = envDuration("RECONCILE_INTERVAL", cfg.ReconcileInterval)
	cfg.ReconcileAge = envDuration("RECONCILE_AGE", cfg.ReconcileAge)
	cfg.ReconcileBatchSize = envInt("RECONCILE_BATCH_SIZE", cfg.ReconcileBatchSize)
	cfg.MaxDisbursementAttempts = envInt("MAX_DISBURSEMENT_ATTEMPTS", cfg.MaxDisbursementAttempts)

	cfg.GatewayProvider = strings.ToLower(strings.TrimSpace(envOrDefault("PAYMENT_GATEWAY", cfg.GatewayProvider)))
	cfg.FlutterwaveBaseURL = envOrDefault("FLW_BASE_URL", cfg.FlutterwaveBaseURL)
	cfg.FlutterwaveSecretKey = envOrDefault("FLW_SECRET_KEY", cfg.FlutterwaveSecretKey)
	cfg.FlutterwaveWebhookHash = envOrDefault("FLW_SECRET_HASH", cfg.FlutterwaveWebhookHash)
	cfg.FlutterwaveHMACSecret = envOrDefault("FLW_WEBHOOK_HMAC_SECRET", cfg.FlutterwaveHMACSecret)
	cfg.FlutterwaveRedirectURL = envOrDefault("FLW_REDIRECT_URL", cfg.FlutterwaveRedirectURL)
	cfg.VerifyWebhooks = envBool("FLW_VERIFY_WEBHOOKS", cfg.VerifyWebhooks)

	cfg.MTNBaseURL = envOrDefault("MTN_BASE_URL", cfg.MTNBaseURL)
	cfg.MTNSubscriptionKey = envOrDefault("MTN_SUBSCRIPTION_KEY", cfg.MTNSubscriptionKey)
	cfg.MTNDisbursementKey = envOrDefault("MTN_DISBURSEMENT_SUBSCRIPTION_KEY", cfg.MTNDisbursementKey)
	cfg.MTNAPIUser = envOrDefault("MTN_API_USER", cfg.MTNAPIUser)
	cfg.MTNAPIKey = envOrDefault("MTN_API_KEY", cfg.MTNAPIKey)
	cfg.MTNTargetEnvironment = envOrDefault("MTN_TARGET_ENVIRONMENT", cfg.MTNTargetEnvironment)
	cfg.MTNCallbackURL = envOrDefault("MTN_CALLBACK_URL", cfg.MTNCallbackURL)
	if cfg.MTNDisbursementKey == "" {
		cfg.MTNDisbursementKey = cfg.MTNSubscriptionKey
	}

	cfg.AirtelBaseURL = envOrDefault("AIRTEL_BASE_URL", cfg.AirtelBaseURL)
	cfg.AirtelClientID = envOrDefault("AIRTEL_CLIENT_ID", cfg.AirtelClientID)
	cfg.AirtelClientSecret = envOrDefault("AIRTEL_CLIENT_SECRET", cfg.AirtelClientSecret)
	cfg.AirtelEncryptedPIN = envOrDefault("AIRTEL_ENCRYPTED_PIN", cfg.AirtelEncryptedPIN)

	cfg.GatewayHTTPTimeout = envDuration("GATEWAY_HTTP_TIMEOUT", cfg.GatewayHTTPTimeout)
	cfg.GatewayRetryAttempts = envInt("GATEWAY_RETRY_ATTEMPTS", cfg.GatewayRetryAttempts)
	cfg.GatewayRetryBaseDelay = envDuration("GATEWAY_RETRY_BASE_DELAY", cfg.GatewayRetryBaseDelay)

	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.PhoneEncryptionSecret = envOrDefault("PHONE_ENCRYPTION_SECRET", cfg.PhoneEncryptionSecret)
	cfg.InternalAPIKeyHash = envOrDefault("INTERNAL_API_KEY_HASH", cfg.InternalAPIKeyHash)

	cfg.AsyncWebhooks = envBool("WEBHOOKS_ASYNC", cfg.AsyncWebhooks)
	cfg.WebhookTopic = envOrDefault("WEBHOOKS_TOPIC", cfg.WebhookTopic)

	cfg.OutboxPollInterval = envDuration("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = envDuration("OUTBOX_CLAIM_TTL", cfg.OutboxClaimTTL)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing DB_URL/POSTGRES_URL for storage driver %q", c.StorageDriver)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("commission rate must be in [0, 1), got %v", c.CommissionRate)
	}
	if c.ChargeCap <= 0 {
		return fmt.Errorf("charge cap must be positive")
	}
	switch c.GatewayProvider {
	case GatewayFlutterwave:
		if c.FlutterwaveSecretKey == "" {
			return fmt.Errorf("missing FLW_SECRET_KEY")
		}
		if c.VerifyWebhooks && c.FlutterwaveWebhookHash == "" && c.FlutterwaveHMACSecret == "" {
			return fmt.Errorf("missing FLW_SECRET_HASH or FLW_WEBHOOK_HMAC_SECRET")
		}
	case GatewayDirect:
		if c.MTNAPIUser == "" || c.MTNAPIKey == "" || c.MTNSubscriptionKey == "" {
			return fmt.Errorf("missing MTN_API_USER, MTN_API_KEY or MTN_SUBSCRIPTION_KEY")
		}
		if c.AirtelClientID == "" || c.AirtelClientSecret == "" {
			return fmt.Errorf("missing AIRTEL_CLIENT_ID or AIRTEL_CLIENT_SECRET")
		}
	default:
		return fmt.Errorf("unknown payment gateway %q", c.GatewayProvider)
	}
	if (c.JWTPrivateKeyPEM == "" && c.JWTPublicKeyPEM == "") && !c.AllowEphemeralJWT {
		return fmt.Errorf("missing JWT_PUBLIC_KEY_PEM")
	}
	if c.AsyncWebhooks && len(c.KafkaBrokers) > 0 && c.WebhookTopic == "" {
		return fmt.Errorf("async webhooks over kafka need a webhook topic")
	}
	return nil
}

func applyFile(cfg *Config, f configFile) error {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}

	if f.Dependencies.StorageDriver != "" {
		cfg.StorageDriver = strings.ToLower(f.Dependencies.StorageDriver)
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if f.Dependencies.ConsumerGroupID != "" {
		cfg.ConsumerGroupID = f.Dependencies.ConsumerGroupID
	}

	if f.Escrow.Currency != "" {
		cfg.Currency = f.Escrow.Currency
	}
	if f.Escrow.CommissionRate > 0 {
		cfg.CommissionRate = f.Escrow.CommissionRate
	}
	if f.Escrow.ChargeCap > 0 {
		cfg.ChargeCap = f.Escrow.ChargeCap
	}
	if f.Escrow.ReconcileBatchSize > 0 {
		cfg.ReconcileBatchSize = f.Escrow.ReconcileBatchSize
	}
	if f.Escrow.MaxDisbursementAttempts > 0 {
		cfg.MaxDisbursementAttempts = f.Escrow.MaxDisbursementAttempts
	}

	if f.Gateway.Provider != "" {
		cfg.GatewayProvider = strings.ToLower(f.Gateway.Provider)
	}
	flw := f.Gateway.Flutterwave
	if flw.BaseURL != "" {
		cfg.FlutterwaveBaseURL = flw.BaseURL
	}
	if flw.SecretKey != "" {
		cfg.FlutterwaveSecretKey = flw.SecretKey
	}
	if flw.WebhookHash != "" {
		cfg.FlutterwaveWebhookHash = flw.WebhookHash
	}
	if flw.HMACSecret != "" {
		cfg.FlutterwaveHMACSecret = flw.HMACSecret
	}
	if flw.RedirectURL != "" {
		cfg.FlutterwaveRedirectURL = flw.RedirectURL
	}
	if flw.VerifyWebhooks != nil {
		cfg.VerifyWebhooks = *flw.VerifyWebhooks
	}
	mtn := f.Gateway.MTN
	if mtn.BaseURL != "" {
		cfg.MTNBaseURL = mtn.BaseURL
	}
	if mtn.SubscriptionKey != "" {
		cfg.MTNSubscriptionKey = mtn.SubscriptionKey
	}
	if mtn.DisbursementKey != "" {
		cfg.MTNDisbursementKey = mtn.DisbursementKey
	}
	if mtn.APIUser != "" {
		cfg.MTNAPIUser = mtn.APIUser
	}
	if mtn.APIKey != "" {
		cfg.MTNAPIKey = mtn.APIKey
	}
	if mtn.TargetEnvironment != "" {
		cfg.MTNTargetEnvironment = mtn.TargetEnvironment
	}
	if mtn.CallbackURL != "" {
		cfg.MTNCallbackURL = mtn.CallbackURL
	}
	airtel := f.Gateway.Airtel
	if airtel.BaseURL != "" {
		cfg.AirtelBaseURL = airtel.BaseURL
	}
	if airtel.ClientID != "" {
		cfg.AirtelClientID = airtel.ClientID
	}
	if airtel.ClientSecret != "" {
		cfg.AirtelClientSecret = airtel.ClientSecret
	}
	if airtel.EncryptedPIN != "" {
		cfg.AirtelEncryptedPIN = airtel.EncryptedPIN
	}
	if f.Gateway.RetryAttempts > 0 {
		cfg.GatewayRetryAttempts = f.Gateway.RetryAttempts
	}

	if f.Security.JWTKeyID != "" {
		cfg.JWTKeyID = f.Security.JWTKeyID
	}
	if f.Security.AllowEphemeralJWT != nil {
		cfg.AllowEphemeralJWT = *f.Security.AllowEphemeralJWT
	}
	if f.Security.InternalAPIKeyHash != "" {
		cfg.InternalAPIKeyHash = f.Security.InternalAPIKeyHash
	}

	if f.Webhooks.Async != nil {
		cfg.AsyncWebhooks = *f.Webhooks.Async
	}
	if f.Webhooks.Topic != "" {
		cfg.WebhookTopic = f.Webhooks.Topic
	}

	if f.Outbox.BatchSize > 0 {
		cfg.OutboxBatchSize = f.Outbox.BatchSize
	}
	if f.Outbox.MaxRetries > 0 {
		cfg.OutboxMaxRetries = f.Outbox.MaxRetries
	}
	for eventType, topic := range f.Outbox.Topics {
		cfg.OutboxTopics[eventType] = topic
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"escrow.idempotency_ttl", f.Escrow.IdempotencyTTL, &cfg.IdempotencyTTL},
		{"escrow.webhook_dedup_ttl", f.Escrow.WebhookDedupTTL, &cfg.WebhookDedupTTL},
		{"escrow.disbursement_lock_ttl", f.Escrow.DisbursementLockTTL, &cfg.DisbursementLockTTL},
		{"escrow.reconcile_interval", f.Escrow.ReconcileInterval, &cfg.ReconcileInterval},
		{"escrow.reconcile_age", f.Escrow.ReconcileAge, &cfg.ReconcileAge},
		{"gateway.http_timeout", f.Gateway.HTTPTimeout, &cfg.GatewayHTTPTimeout},
		{"gateway.retry_base_delay", f.Gateway.RetryBaseDelay, &cfg.GatewayRetryBaseDelay},
		{"outbox.poll_interval", f.Outbox.PollInterval, &cfg.OutboxPollInterval},
		{"outbox.claim_ttl", f.Outbox.ClaimTTL, &cfg.OutboxClaimTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.field = parsed
	}
	return nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go duration strings ("90s", "10m").
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
