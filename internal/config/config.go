package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	AppModeProduction = "PROD"
	AppModeDevelop    = "DEV"
)

type Config struct {
	App         *App
	HTTP        *HTTP
	Database    *Database
	Auth        *Auth
	Pricing     *Pricing
	Mail        *Mail
	Notify      *Notify
	RabbitMQ    *RabbitMQ
	Redis       *Redis
	AutoConfirm *AutoConfirm
}

type App struct {
	Mode     string
	LogLevel string
	SiteURL  string
}

type HTTP struct {
	Port string
}

type Database struct {
	Driver string
	DSN    string
}

type Auth struct {
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

type Pricing struct {
	TaxRate          decimal.Decimal
	ShippingFlat     decimal.Decimal
	FreeShippingOver decimal.Decimal
}

type Mail struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
}

type Notify struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

type RabbitMQ struct {
	URL string
}

type Redis struct {
	Addr     string
	Password string
	TTL      time.Duration
}

type AutoConfirm struct {
	After    time.Duration // zero disables the sweeper
	Interval time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds the configuration from v, applying defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	pricing, err := parsePricing(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: &App{
			Mode:     strings.ToUpper(v.GetString("APP_MODE")),
			LogLevel: v.GetString("LOG_LEVEL"),
			SiteURL:  v.GetString("SITE_URL"),
		},
		HTTP: &HTTP{Port: v.GetString("APP_PORT")},
		Database: &Database{
			Driver: v.GetString("DATABASE_DRIVER"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Auth: &Auth{
			JWTSecret:     v.GetString("JWT_SECRET"),
			AdminUsername: v.GetString("ADMIN_USERNAME"),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
			AdminEmail:    v.GetString("ADMIN_EMAIL"),
		},
		Pricing: pricing,
		Mail: &Mail{
			SMTPHost:     v.GetString("SMTP_HOST"),
			SMTPPort:     v.GetInt("SMTP_PORT"),
			SMTPUsername: v.GetString("SMTP_USERNAME"),
			SMTPPassword: v.GetString("SMTP_PASSWORD"),
			From:         v.GetString("MAIL_FROM"),
		},
		Notify: &Notify{
			Workers:      v.GetInt("NOTIFY_WORKERS"),
			QueueSize:    v.GetInt("NOTIFY_QUEUE_SIZE"),
			MaxAttempts:  v.GetInt("NOTIFY_MAX_ATTEMPTS"),
			RetryBackoff: v.GetDuration("NOTIFY_RETRY_BACKOFF"),
		},
		RabbitMQ: &RabbitMQ{URL: v.GetString("RABBITMQ_URL")},
		Redis: &Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			TTL:      v.GetDuration("STATUS_CACHE_TTL"),
		},
		AutoConfirm: &AutoConfirm{
			After:    v.GetDuration("AUTO_CONFIRM_AFTER"),
			Interval: v.GetDuration("AUTO_CONFIRM_INTERVAL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_MODE", AppModeDevelop)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SITE_URL", "http://localhost:3000")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:orders.db?cache=shared")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("TAX_RATE", "0")
	v.SetDefault("SHIPPING_FLAT", "0")
	v.SetDefault("FREE_SHIPPING_OVER", "0")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@localhost")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 100)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_RETRY_BACKOFF", "2s")
	v.SetDefault("STATUS_CACHE_TTL", "5m")
	v.SetDefault("AUTO_CONFIRM_AFTER", "0s")
	v.SetDefault("AUTO_CONFIRM_INTERVAL", "1m")
}

func parsePricing(v *viper.Viper) (*Pricing, error) {
	var p Pricing
	for key, dst := range map[string]*decimal.Decimal{
		"TAX_RATE":           &p.TaxRate,
		"SHIPPING_FLAT":      &p.ShippingFlat,
		"FREE_SHIPPING_OVER": &p.FreeShippingOver,
	} {
		d, err := decimal.NewFromString(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("invalid %s: must not be negative", key)
		}
		*dst = d
	}
	return &p, nil
}

func (c *Config) validate() error {
	switch c.App.Mode {
	case AppModeDevelop, AppModeProduction:
	default:
		return fmt.Errorf("invalid APP_MODE %q: want %s or %s", c.App.Mode, AppModeDevelop, AppModeProduction)
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER %q: want postgres or sqlite", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is required")
	}

	if c.Auth.JWTSecret == "" {
		if c.App.Mode == AppModeProduction {
			return errors.New("JWT_SECRET is required in PROD mode")
		}
		c.Auth.JWTSecret = "dev-secret-change-me"
	}

	if c.AutoConfirm.After < 0 {
		return errors.New("AUTO_CONFIRM_AFTER must not be negative")
	}
	if c.AutoConfirm.After > 0 && c.AutoConfirm.Interval <= 0 {
		return errors.New("AUTO_CONFIRM_INTERVAL must be positive when auto-confirmation is enabled")
	}
	return nil
}
