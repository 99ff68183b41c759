package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the runtime configuration of the meetsburg service. The
// store retry policy and the notifier timing are explicit values here, not
// hidden constants.
type Config struct {
	GeneralParams  GeneralParams
	HTTPParams     HTTPParams
	StoreParams    StoreParams
	NotifierParams NotifierParams
}

type GeneralParams struct {
	Env string
}

type HTTPParams struct {
	Address string
	Port    int
}

type StoreParams struct {
	SQLitePath    string
	RetryAttempts int
	RetryDelay    time.Duration
}

type NotifierParams struct {
	Tick           time.Duration
	CutoffHour     int
	ImminentWindow time.Duration
	WebhookURL     string
}

// Load reads configuration from an optional YAML file plus MEETSBURG_
// prefixed environment overrides, applying defaults for everything else.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("general_params.env", "dev")
	v.SetDefault("http_params.address", "")
	v.SetDefault("http_params.port", 8080)
	v.SetDefault("store_params.sqlite_path", "meetsburg.db")
	v.SetDefault("store_params.retry_attempts", 3)
	v.SetDefault("store_params.retry_delay", "100ms")
	v.SetDefault("notifier_params.tick", "60s")
	v.SetDefault("notifier_params.cutoff_hour", 12)
	v.SetDefault("notifier_params.imminent_window", "30m")
	v.SetDefault("notifier_params.webhook_url", "")

	v.AutomaticEnv()
	v.SetEnvPrefix("MEETSBURG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		GeneralParams: GeneralParams{
			Env: v.GetString("general_params.env"),
		},
		HTTPParams: HTTPParams{
			Address: v.GetString("http_params.address"),
			Port:    v.GetInt("http_params.port"),
		},
		StoreParams: StoreParams{
			SQLitePath:    v.GetString("store_params.sqlite_path"),
			RetryAttempts: v.GetInt("store_params.retry_attempts"),
			RetryDelay:    v.GetDuration("store_params.retry_delay"),
		},
		NotifierParams: NotifierParams{
			Tick:           v.GetDuration("notifier_params.tick"),
			CutoffHour:     v.GetInt("notifier_params.cutoff_hour"),
			ImminentWindow: v.GetDuration("notifier_params.imminent_window"),
			WebhookURL:     v.GetString("notifier_params.webhook_url"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetAddress renders the listen address of the HTTP server.
func (h *HTTPParams) GetAddress() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch c.GeneralParams.Env {
	case "dev", "prod", "test":
	default:
		return fmt.Errorf("env parameter is invalid: %s. try dev/prod/test instead", c.GeneralParams.Env)
	}

	if c.HTTPParams.Port <= 0 {
		return fmt.Errorf("http port must be positive, got %d", c.HTTPParams.Port)
	}
	if c.StoreParams.SQLitePath == "" {
		return fmt.Errorf("parameter sqlite_path is required")
	}
	if c.StoreParams.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1, got %d", c.StoreParams.RetryAttempts)
	}
	if c.StoreParams.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	if c.NotifierParams.Tick <= 0 {
		return fmt.Errorf("notifier tick must be positive")
	}
	if c.NotifierParams.CutoffHour < 0 || c.NotifierParams.CutoffHour > 23 {
		return fmt.Errorf("cutoff_hour must be between 0 and 23, got %d", c.NotifierParams.CutoffHour)
	}
	if c.NotifierParams.ImminentWindow <= 0 {
		return fmt.Errorf("imminent_window must be positive")
	}

	return nil
}
