package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Env      string
	Port     string
	Logs     LogConfig
	DB       PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Limits   LimitConfig
	OpenAI   OpenAIConfig
	Stripe   StripeConfig
	CORS     []string
	QueueURL string
	// Lambda is set when running under the Lambda runtime, which freezes
	// the process between invocations.
	Lambda bool
}

type LogConfig struct {
	Style string
	Level string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Database string
	SSLMode  string
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.Username,
		p.Password,
		p.URL,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

type RedisConfig struct {
	URL      string
	GuestTTL time.Duration
}

type AuthConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	Disabled bool
}

type LimitConfig struct {
	Guest int
	Free  int
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	PriceIDProMonthly string
	FrontendURL       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "local")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_STYLE", "json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DB", "postgres")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("GUEST_TTL", "0s")
	v.SetDefault("GUEST_LIMIT", 2)
	v.SetDefault("FREE_LIMIT", 10)
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("OPENAI_TIMEOUT", "60s")
	v.SetDefault("CORS_ORIGINS", "*")
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:      v.GetString("ENV"),
		Port:     v.GetString("PORT"),
		QueueURL: v.GetString("QUEUE_URL"),
		Lambda:   v.GetString("AWS_LAMBDA_FUNCTION_NAME") != "",
		CORS:     splitList(v.GetString("CORS_ORIGINS")),
		Logs: LogConfig{
			Style: v.GetString("LOG_STYLE"),
			Level: v.GetString("LOG_LEVEL"),
		},
		DB: PostgresConfig{
			Username: v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PWD"),
			URL:      v.GetString("POSTGRES_URL"),
			Port:     v.GetString("POSTGRES_PORT"),
			Database: v.GetString("POSTGRES_DB"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("REDIS_URL"),
			GuestTTL: v.GetDuration("GUEST_TTL"),
		},
		Auth: AuthConfig{
			Issuer:   strings.TrimSpace(v.GetString("AUTH_ISSUER")),
			Audience: strings.TrimSpace(v.GetString("AUTH_AUDIENCE")),
			JWKSURL:  strings.TrimSpace(v.GetString("AUTH_JWKS_URL")),
			Disabled: v.GetBool("AUTH_DISABLED"),
		},
		Limits: LimitConfig{
			Guest: v.GetInt("GUEST_LIMIT"),
			Free:  v.GetInt("FREE_LIMIT"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString("OPENAI_API_KEY"),
			Model:   v.GetString("OPENAI_MODEL"),
			BaseURL: v.GetString("OPENAI_BASE_URL"),
			Timeout: v.GetDuration("OPENAI_TIMEOUT"),
		},
		Stripe: StripeConfig{
			SecretKey:         v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret:     v.GetString("STRIPE_WEBHOOK_SECRET"),
			PriceIDProMonthly: v.GetString("STRIPE_PRO_PRICE_ID"),
			FrontendURL:       strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Limits.Guest < 0 {
		return errors.New("GUEST_LIMIT must not be negative")
	}
	if c.Limits.Free <= 0 {
		return errors.New("FREE_LIMIT must be positive")
	}
	if c.OpenAI.Timeout <= 0 {
		return errors.New("OPENAI_TIMEOUT must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
