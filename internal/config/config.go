// Package config loads the monitor configuration from the environment
// and an optional yaml file.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every runtime setting. Environment variables win over
// the yaml file; the file is optional.
type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"prod"`
	ListenAddr string `yaml:"listen_addr" env:"ADDR" env-default:":8080"`

	Portal struct {
		BaseURL  string `yaml:"base_url" env:"ORANGE_BASE_URL" env-default:"https://www.orange.ro"`
		Username string `yaml:"username" env:"ORANGE_USERNAME"`
		Password string `yaml:"password" env:"ORANGE_PASSWORD"`
	} `yaml:"portal"`

	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"1h"`

	// DueDateTimeZone controls how invoice due dates are rendered.
	// "Local" keeps the system zone; the portal itself is fixed to
	// Romania, so "Europe/Bucharest" is the usual production choice.
	DueDateTimeZone string `yaml:"due_date_time_zone" env:"DUE_DATE_TZ" env-default:"Local"`

	// DatabaseURL enables poll-cycle history when set.
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`

	Admin struct {
		Username string `yaml:"username" env:"ADMIN_USERNAME" env-default:"admin"`
		// Empty password leaves the API unauthenticated.
		Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	} `yaml:"admin"`

	OIDC struct {
		Issuer       string `yaml:"issuer" env:"OIDC_ISSUER"`
		ClientID     string `yaml:"client_id" env:"OIDC_CLIENT_ID"`
		ClientSecret string `yaml:"client_secret" env:"OIDC_CLIENT_SECRET"`
		RedirectURL  string `yaml:"redirect_url" env:"OIDC_REDIRECT_URL"`
	} `yaml:"oidc"`
}

// Load reads configuration from CONFIG_PATH (when set) and the
// environment, then validates the portal credentials.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Portal.Username == "" || cfg.Portal.Password == "" {
		return nil, errors.New("ORANGE_USERNAME and ORANGE_PASSWORD are required")
	}
	return &cfg, nil
}

// DueDateLocation resolves the configured due-date time zone.
func (c *Config) DueDateLocation() (*time.Location, error) {
	switch c.DueDateTimeZone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.DueDateTimeZone)
	}
}
