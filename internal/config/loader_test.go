package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"azdoauth/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "azdoauth.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefault(t *testing.T) {
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Provider.BaseURL != "https://app.vssps.visualstudio.com" {
		t.Errorf("Provider.BaseURL = %q", cfg.Provider.BaseURL)
	}
	if cfg.Provider.Scope != "" {
		t.Errorf("Provider.Scope = %q, want empty so the adapter default applies", cfg.Provider.Scope)
	}
	if cfg.HTTP.Timeout != 30 {
		t.Errorf("HTTP.Timeout = %d, want 30", cfg.HTTP.Timeout)
	}
}

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "file overrides defaults",
			yaml: `
provider:
  clientId: app-id
  clientSecret: app-secret
  scope: vso.profile vso.work
server:
  port: 9000
  callbackUrl: https://auth.example.com/callback/azure-devops
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Provider.ClientID != "app-id" || cfg.Provider.ClientSecret != "app-secret" {
					t.Errorf("unexpected provider %+v", cfg.Provider)
				}
				if cfg.Provider.Scope != "vso.profile vso.work" {
					t.Errorf("Scope = %q", cfg.Provider.Scope)
				}
				if cfg.Server.Port != 9000 {
					t.Errorf("Port = %d, want 9000", cfg.Server.Port)
				}
				if cfg.Server.ReadTimeout != 30 {
					t.Errorf("ReadTimeout = %d, want default 30", cfg.Server.ReadTimeout)
				}
			},
		},
		{
			name: "env overrides file",
			yaml: `
provider:
  clientId: from-file
  clientSecret: from-file
`,
			env: map[string]string{
				"AZDOAUTH_PROVIDER_CLIENTSECRET":        "from-env",
				"AZDOAUTH_SERVER_PORT":                  "7070",
				"AZDOAUTH_TELEMETRY_TRACING_SAMPLERATE": "0.25",
				"AZDOAUTH_TELEMETRY_ENABLED":            "true",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Provider.ClientID != "from-file" {
					t.Errorf("ClientID = %q, want from-file", cfg.Provider.ClientID)
				}
				if cfg.Provider.ClientSecret != "from-env" {
					t.Errorf("ClientSecret = %q, want from-env", cfg.Provider.ClientSecret)
				}
				if cfg.Server.Port != 7070 {
					t.Errorf("Port = %d, want 7070", cfg.Server.Port)
				}
				if !cfg.Telemetry.Enabled || cfg.Telemetry.Tracing.SampleRate != 0.25 {
					t.Errorf("unexpected telemetry %+v", cfg.Telemetry)
				}
			},
		},
		{
			name:    "missing client secret",
			yaml:    "provider:\n  clientId: only-id\n",
			wantErr: true,
		},
		{
			name: "relative callback url",
			yaml: `
provider:
  clientId: a
  clientSecret: b
server:
  callbackUrl: /callback
`,
			wantErr: true,
		},
		{
			name: "port out of range",
			yaml: `
provider:
  clientId: a
  clientSecret: b
server:
  port: 70000
`,
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "provider: [",
			wantErr: true,
		},
		{
			name: "bad env value",
			yaml: "provider:\n  clientId: a\n  clientSecret: b\n",
			env: map[string]string{
				"AZDOAUTH_SERVER_PORT": "not-a-number",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.yaml)

			cfg, err := NewLoader(path).Load()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got config %+v", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoader_ValidationErrorType(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	_, err := NewLoader(path).WithEnvVars(false).Load()
	if errors.TypeOf(err) != errors.ErrorTypeBadRequest {
		t.Errorf("error type = %v, want bad_request (%v)", errors.TypeOf(err), err)
	}
	if !strings.Contains(err.Error(), "clientId") {
		t.Errorf("error should name the missing field: %v", err)
	}
}

func TestLoader_EnvOnly(t *testing.T) {
	t.Setenv("AZDOAUTH_PROVIDER_CLIENTID", "env-id")
	t.Setenv("AZDOAUTH_PROVIDER_CLIENTSECRET", "env-secret")

	cfg, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.ClientID != "env-id" {
		t.Errorf("ClientID = %q", cfg.Provider.ClientID)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
