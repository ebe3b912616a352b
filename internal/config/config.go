// Package config loads the notifier configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration errors.
var (
	// ErrMissingDatabaseURL is returned when DATABASE_URL is not set.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL environment variable")

	// ErrInvalidPort is returned when SERVICE_PORT is not a valid TCP port.
	ErrInvalidPort = errors.New("invalid SERVICE_PORT")
)

// Defaults.
const (
	DefaultPort        = 7125
	DefaultHost        = "http://localhost"
	DefaultSchedule    = "0 0 * * 0"
	DefaultHTTPTimeout = 30 * time.Second
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL string
	HostURL     string
	Port        int
	IsProd      bool
	Schedule    string
	HTTPTimeout time.Duration
}

// Addr returns the listen address of the web server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// RequireDatabase returns ErrMissingDatabaseURL if no database is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// Load reads configuration from environment variables.
// DATABASE_URL is not required here; commands that need it call RequireDatabase.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        DefaultPort,
		Schedule:    DefaultSchedule,
		HTTPTimeout: DefaultHTTPTimeout,
	}

	if v := os.Getenv("SERVICE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("IS_PROD"); v != "" {
		isProd, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parsing IS_PROD: %w", err)
		}
		cfg.IsProd = isProd
	}

	if v := os.Getenv("SCHEDULE"); v != "" {
		cfg.Schedule = v
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("parsing HTTP_TIMEOUT %q: invalid duration", v)
		}
		cfg.HTTPTimeout = d
	}

	host, err := hostURL(os.Getenv("HOST_URL"), cfg.Port)
	if err != nil {
		return nil, err
	}
	cfg.HostURL = host

	return cfg, nil
}

// hostURL returns the public base URL, appending the port for localhost.
func hostURL(raw string, port int) (string, error) {
	if raw == "" {
		raw = DefaultHost
	}
	raw = strings.TrimSuffix(raw, "/")

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("parsing HOST_URL %q: must be an absolute URL", raw)
	}

	if u.Hostname() == "localhost" && u.Port() == "" {
		u.Host = u.Host + ":" + strconv.Itoa(port)
	}
	return u.String(), nil
}
