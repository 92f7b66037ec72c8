// Package config loads the smokecheck configuration file (smokecheck.yaml).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acharya-hq/smokecheck/internal/api"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "smokecheck.yaml"

// DefaultBaseURL is where the service listens in a local checkout.
const DefaultBaseURL = "http://localhost:8000"

// Environment overrides.
const (
	EnvConfig  = "SMOKECHECK_CONFIG"
	EnvBaseURL = "SMOKECHECK_BASE_URL"
	EnvTimeout = "SMOKECHECK_TIMEOUT"
)

// Config represents the contents of smokecheck.yaml.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// Credentials maps a role name to the account used to log in as it.
	Credentials map[string]api.Credentials `yaml:"credentials"`

	// FatalOverrides forces a step, by name, to be fatal or non-fatal.
	FatalOverrides map[string]bool `yaml:"fatal_overrides"`

	// Strict makes every step fatal.
	Strict bool `yaml:"strict"`
}

// Default returns the configuration used when no file is present: a local
// service and the seeded recruiter1 and candidate1 accounts.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads the config at path; the file must exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// ApplyEnv overrides fields from SMOKECHECK_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks that the config can drive a run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q: host is required", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	for role, creds := range c.Credentials {
		if creds.Username == "" {
			return fmt.Errorf("credentials.%s: username is required", role)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = api.DefaultTimeout
	}
	if c.Credentials == nil {
		c.Credentials = make(map[string]api.Credentials)
	}
	defaults := map[string]api.Credentials{
		"recruiter": {Username: "recruiter1", Password: "password123"},
		"candidate": {Username: "candidate1", Password: "password123"},
	}
	for role, creds := range defaults {
		if _, ok := c.Credentials[role]; !ok {
			c.Credentials[role] = creds
		}
	}
	if c.FatalOverrides == nil {
		c.FatalOverrides = make(map[string]bool)
	}
}
