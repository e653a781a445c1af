package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CRAFTORA"

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTORA_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTORA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CRAFTORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, "prod")
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTORA_DB_DSN"`
	Driver string `envconfig:"CRAFTORA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CRAFTORA_DB_HOST"`
	Port     int    `envconfig:"CRAFTORA_DB_PORT" default:"5432"`
	User     string `envconfig:"CRAFTORA_DB_USER"`
	Password string `envconfig:"CRAFTORA_DB_PASSWORD"`
	Name     string `envconfig:"CRAFTORA_DB_NAME"`
	SSLMode  string `envconfig:"CRAFTORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTORA_REDIS_URL"`
	Address      string        `envconfig:"CRAFTORA_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CRAFTORA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CRAFTORA_JWT_ISSUER" default:"craftora"`
	ExpirationMinutes int    `envconfig:"CRAFTORA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"CRAFTORA_STRIPE_API_KEY"`
	WebhookSecret  string        `envconfig:"CRAFTORA_STRIPE_WEBHOOK_SECRET"`
	Env            string        `envconfig:"CRAFTORA_STRIPE_ENV" default:"test"`
	CallTimeout    time.Duration `envconfig:"CRAFTORA_STRIPE_CALL_TIMEOUT" default:"15s"`
	IdempotencyTTL time.Duration `envconfig:"CRAFTORA_STRIPE_EVENT_IDEMPOTENCY_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	// DefaultCommissionRate applies when a product has no configured rate.
	DefaultCommissionRate string `envconfig:"CRAFTORA_DEFAULT_COMMISSION_RATE" default:"0.10"`
	ShippingFlatCents     int    `envconfig:"CRAFTORA_SHIPPING_FLAT_CENTS" default:"0"`
	TaxRate               string `envconfig:"CRAFTORA_TAX_RATE" default:"0"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"CRAFTORA_DB_HOST": db.Host,
		"CRAFTORA_DB_USER": db.User,
		"CRAFTORA_DB_NAME": db.Name,
	}
	for _, key := range []string{"CRAFTORA_DB_HOST", "CRAFTORA_DB_USER", "CRAFTORA_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either CRAFTORA_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
