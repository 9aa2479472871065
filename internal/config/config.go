package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Version     string `envconfig:"VERSION" default:"dev"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	AutoMigrate      bool   `envconfig:"AUTO_MIGRATE" default:"false"`

	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer       string        `envconfig:"JWT_ISSUER" default:"tenantauth"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
	HashConcurrency int           `envconfig:"HASH_CONCURRENCY" default:"4"`

	AllowGlobalEmailLogin bool `envconfig:"ALLOW_GLOBAL_EMAIL_LOGIN" default:"false"`
	LoginRatePerMinute    int  `envconfig:"LOGIN_RATE_PER_MINUTE" default:"20"`
	LoginRateBurst        int  `envconfig:"LOGIN_RATE_BURST" default:"5"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`

	RedisURL            string        `envconfig:"REDIS_URL" default:""`
	EligibilityCacheTTL time.Duration `envconfig:"ELIGIBILITY_CACHE_TTL" default:"5m"`

	KafkaBrokers []string      `envconfig:"KAFKA_BROKERS" default:""`
	AuditTopic   string        `envconfig:"AUDIT_TOPIC" default:"tenantauth.audit"`
	AuditTimeout time.Duration `envconfig:"AUDIT_TIMEOUT" default:"3s"`

	InviteTTL        time.Duration `envconfig:"INVITE_TTL" default:"168h"`
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`
	SessionRetention time.Duration `envconfig:"SESSION_RETENTION" default:"720h"`
}

// Load reads an optional .env file and then the environment into a Config.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET must not be empty")
	case c.AccessTokenTTL <= 0:
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	case c.RefreshTokenTTL < c.AccessTokenTTL:
		return fmt.Errorf("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	case c.HashConcurrency < 1:
		return fmt.Errorf("HASH_CONCURRENCY must be at least 1")
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	case c.RequestTimeout <= 0:
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	case c.AllowGlobalEmailLogin && c.Production():
		return fmt.Errorf("ALLOW_GLOBAL_EMAIL_LOGIN must not be enabled in production")
	}
	return nil
}

// Production reports whether the service runs in production.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// KafkaEnabled reports whether audit events are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaBrokers[0] != ""
}
