package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Hedera       HederaConfig
	Resilience   ResilienceConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Hedera.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VERITRACE_APP_ENV" required:"true"`
	Port         string `envconfig:"VERITRACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VERITRACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VERITRACE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VERITRACE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VERITRACE_DB_DSN"`
	Driver string `envconfig:"VERITRACE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VERITRACE_DB_HOST"`
	LegacyPort     int    `envconfig:"VERITRACE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VERITRACE_DB_USER"`
	LegacyPassword string `envconfig:"VERITRACE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VERITRACE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VERITRACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VERITRACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VERITRACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VERITRACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VERITRACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VERITRACE_REDIS_URL"`
	Address      string        `envconfig:"VERITRACE_REDIS_ADDR"`
	Password     string        `envconfig:"VERITRACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VERITRACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VERITRACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VERITRACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VERITRACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VERITRACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VERITRACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VERITRACE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VERITRACE_AUTO_MIGRATE" default:"false"`
}

// HederaConfig points the service at the notary service (Hedera Consensus
// Service submissions) and the mirror node used for transaction confirmation.
type HederaConfig struct {
	Network       string `envconfig:"VERITRACE_HEDERA_NETWORK" default:"testnet"`
	TopicID       string `envconfig:"VERITRACE_HEDERA_TOPIC_ID" required:"true"`
	NotaryBaseURL string `envconfig:"VERITRACE_NOTARY_BASE_URL" required:"true"`
	MirrorBaseURL string `envconfig:"VERITRACE_MIRROR_BASE_URL"`
}

func (h HederaConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(h.Network)) {
	case "mainnet", "testnet":
		return nil
	default:
		return fmt.Errorf("hedera network must be %q or %q", "mainnet", "testnet")
	}
}

// NormalizedNetwork returns the lower-cased network selector.
func (h HederaConfig) NormalizedNetwork() string {
	return strings.ToLower(strings.TrimSpace(h.Network))
}

// ResilienceConfig tunes the verification client core: availability caching,
// per-attempt timeouts, and the retry/backoff policy.
type ResilienceConfig struct {
	AvailabilityTTL time.Duration `envconfig:"VERITRACE_AVAILABILITY_TTL" default:"30s"`
	ProbeTimeout    time.Duration `envconfig:"VERITRACE_PROBE_TIMEOUT" default:"5s"`
	RequestTimeout  time.Duration `envconfig:"VERITRACE_REQUEST_TIMEOUT" default:"5s"`
	MaxRetries      int           `envconfig:"VERITRACE_MAX_RETRIES" default:"3"`
	BaseDelay       time.Duration `envconfig:"VERITRACE_RETRY_BASE_DELAY" default:"1s"`
}

type RateLimitConfig struct {
	PublicWindow  time.Duration `envconfig:"VERITRACE_RATE_LIMIT_PUBLIC_WINDOW" default:"1m"`
	PublicIPLimit int           `envconfig:"VERITRACE_RATE_LIMIT_PUBLIC_IP_LIMIT" default:"60"`
	SubmitIPLimit int           `envconfig:"VERITRACE_RATE_LIMIT_SUBMIT_IP_LIMIT" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VERITRACE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VERITRACE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VERITRACE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotarizationTopic        string `envconfig:"VERITRACE_PUBSUB_NOTARIZATION_TOPIC" required:"true"`
	NotarizationSubscription string `envconfig:"VERITRACE_PUBSUB_NOTARIZATION_SUBSCRIPTION" required:"true"`
	AnalyticsTopic           string `envconfig:"VERITRACE_PUBSUB_ANALYTICS_TOPIC" required:"true"`
	AnalyticsSubscription    string `envconfig:"VERITRACE_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset                 string `envconfig:"VERITRACE_BIGQUERY_DATASET" default:"veritrace"`
	VerificationEventsTable string `envconfig:"VERITRACE_BIGQUERY_VERIFICATION_TABLE" default:"verification_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VERITRACE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VERITRACE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VERITRACE_OUTBOX_MAX_ATTEMPTS" default:"10"`

	IdempotencyTTL time.Duration `envconfig:"VERITRACE_OUTBOX_IDEMPOTENCY_TTL" default:"168h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
