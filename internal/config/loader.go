package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"azdoauth/pkg/errors"
)

// Loader layers the embedded defaults, an optional YAML file and the
// environment, in that order
type Loader struct {
	path       string
	envEnabled bool
}

// NewLoader creates a config loader. An empty path skips the file layer.
func NewLoader(path string) *Loader {
	return &Loader{
		path:       path,
		envEnabled: true,
	}
}

// WithEnvVars enables or disables environment variable loading
func (l *Loader) WithEnvVars(enabled bool) *Loader {
	l.envEnabled = enabled
	return l
}

// Load loads and validates the configuration
func (l *Loader) Load() (*Config, error) {
	cfg, err := LoadDefault()
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeInternal, "failed to parse default config").WithCause(err)
	}

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "failed to read config file").
				WithCause(err).
				WithDetail("path", l.path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "failed to parse config").
				WithCause(err).
				WithDetail("path", l.path)
		}
	}

	if l.envEnabled {
		if err := LoadEnv(cfg); err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "failed to load env vars").WithCause(err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.NewError(errors.ErrorTypeBadRequest, "invalid configuration").WithCause(err)
	}

	return cfg, nil
}

// Validate checks the fields the service cannot start without
func Validate(cfg *Config) error {
	if cfg.Provider.ClientID == "" {
		return fmt.Errorf("provider clientId is required")
	}
	if cfg.Provider.ClientSecret == "" {
		return fmt.Errorf("provider clientSecret is required")
	}
	if cfg.Provider.BaseURL != "" {
		if err := requireAbsoluteURL("provider baseUrl", cfg.Provider.BaseURL); err != nil {
			return err
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if err := requireAbsoluteURL("server callbackUrl", cfg.Server.CallbackURL); err != nil {
		return err
	}

	if cfg.HTTP.Timeout < 0 || cfg.HTTP.DialTimeout < 0 || cfg.HTTP.ResponseHeaderTimeout < 0 {
		return fmt.Errorf("http timeouts must not be negative")
	}

	if t := cfg.Server.TLS; t != nil && t.Enabled && (t.CertFile == "" || t.KeyFile == "") {
		return fmt.Errorf("server tls requires certFile and keyFile")
	}

	return nil
}

func requireAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	return nil
}
