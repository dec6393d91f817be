package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:5173"`
	SeedCatalog bool   `env:"SEED_CATALOG" envDefault:"false"`

	Database   Database   `envPrefix:"DB_"`
	Auth       Auth       `envPrefix:"AUTH_"`
	Stripe     Stripe     `envPrefix:"STRIPE_"`
	Pricing    Pricing    `envPrefix:"PRICING_"`
	Encryption Encryption `envPrefix:"ENCRYPTION_"`
	Storage    Storage    `envPrefix:"S3_"`
	OpenAI     OpenAI     `envPrefix:"OPENAI_"`
	CORS       CORS       `envPrefix:"CORS_"`
	RateLimit  RateLimit  `envPrefix:"RATE_LIMIT_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host            string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Database selects the gorm dialector. Driver is one of postgres, mysql or sqlite.
type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"postgres"`
	URL             string        `env:"URL"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"ISSUER"`
	Audience  string `env:"AUDIENCE" envDefault:"authenticated"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"usd"`
}

// Pricing holds the plan prices that are not catalog rows.
type Pricing struct {
	LifetimeCents      int64  `env:"LIFETIME_CENTS" envDefault:"14900"`
	MembershipCents    int64  `env:"MEMBERSHIP_CENTS" envDefault:"1900"`
	MembershipInterval string `env:"MEMBERSHIP_INTERVAL" envDefault:"month"`
}

type Encryption struct {
	SecretKey string `env:"SECRET_KEY"`
}

type Storage struct {
	Region       string        `env:"REGION" envDefault:"us-east-1"`
	Bucket       string        `env:"BUCKET"`
	Endpoint     string        `env:"ENDPOINT"`
	AccessKey    string        `env:"ACCESS_KEY"`
	SecretKey    string        `env:"SECRET_KEY"`
	UsePathStyle bool          `env:"USE_PATH_STYLE" envDefault:"true"`
	PresignTTL   time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
}

type OpenAI struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL"`
	Model   string `env:"MODEL" envDefault:"gpt-4o-mini"`
}

type CORS struct {
	AllowOrigins []string `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
}

type RateLimit struct {
	PerSecond float64       `env:"PER_SECOND" envDefault:"1"`
	Burst     int           `env:"BURST" envDefault:"5"`
	ExpiresIn time.Duration `env:"EXPIRES_IN" envDefault:"3m"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if len(c.Encryption.SecretKey) < 32 {
		return fmt.Errorf("ENCRYPTION_SECRET_KEY must be at least 32 characters")
	}
	if c.Pricing.LifetimeCents <= 0 || c.Pricing.MembershipCents <= 0 {
		return fmt.Errorf("plan prices must be positive")
	}
	if c.IsProduction() {
		for _, origin := range c.CORS.AllowOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ALLOW_ORIGINS must list explicit origins in production")
			}
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment.Name == "production"
}
