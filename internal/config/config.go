// Package config loads the server configuration. The loaded Config is passed
// into every constructor; nothing reads the environment after startup.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	ProviderAPIKey        string        `mapstructure:"PROVIDER_API_KEY"`
	OriginURL             string        `mapstructure:"ORIGIN_URL"`
	CheckoutProvider      string        `mapstructure:"CHECKOUT_PROVIDER"`
	ProviderWebhookSecret string        `mapstructure:"PROVIDER_WEBHOOK_SECRET"`
	VerifyCardPayments    bool          `mapstructure:"VERIFY_CARD_PAYMENTS"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	HTTPAddr              string        `mapstructure:"HTTP_ADDR"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	LogFormat             string        `mapstructure:"LOG_FORMAT"`
	StalePendingAfter     time.Duration `mapstructure:"STALE_PENDING_AFTER"`
	SweepInterval         time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SimulatedRailDelay    time.Duration `mapstructure:"SIMULATED_RAIL_DELAY"`
	Currency              string        `mapstructure:"CURRENCY"`
}

var defaults = map[string]any{
	"DATABASE_URL":            "",
	"PROVIDER_API_KEY":        "",
	"ORIGIN_URL":              "http://localhost:3000",
	"CHECKOUT_PROVIDER":       "stripe",
	"PROVIDER_WEBHOOK_SECRET": "",
	"VERIFY_CARD_PAYMENTS":    false,
	"JWT_SECRET":              "",
	"HTTP_ADDR":               ":8080",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "json",
	"STALE_PENDING_AFTER":     "0s",
	"SWEEP_INTERVAL":          "15m",
	"SIMULATED_RAIL_DELAY":    "2s",
	"CURRENCY":                "usd",
}

// Load reads config.env from dir (when present) and overlays the process
// environment on top of it.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, err
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.OriginURL = strings.TrimRight(cfg.OriginURL, "/")
	cfg.CheckoutProvider = strings.ToLower(cfg.CheckoutProvider)
	cfg.Currency = strings.ToLower(cfg.Currency)
	return cfg, nil
}

// Validate reports the first missing or malformed setting the server needs.
func (c Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.ProviderAPIKey == "" {
		missing = append(missing, "PROVIDER_API_KEY")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required config: " + strings.Join(missing, ", "))
	}
	switch c.CheckoutProvider {
	case "stripe":
	case "midtrans":
		// Midtrans charges in whole rupiah only.
		if c.Currency != "idr" {
			return errors.New("CHECKOUT_PROVIDER=midtrans requires CURRENCY=idr")
		}
	default:
		return errors.New("CHECKOUT_PROVIDER must be stripe or midtrans")
	}
	if c.StalePendingAfter > 0 && c.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive when STALE_PENDING_AFTER is set")
	}
	if !strings.HasPrefix(c.OriginURL, "http://") && !strings.HasPrefix(c.OriginURL, "https://") {
		return errors.New("ORIGIN_URL must be an absolute http(s) URL")
	}
	return nil
}
