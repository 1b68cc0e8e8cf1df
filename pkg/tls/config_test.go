package tls

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func TestParseTLSVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected uint16
	}{
		{"1.0", tls.VersionTLS10},
		{"1.1", tls.VersionTLS11},
		{"1.2", tls.VersionTLS12},
		{"1.3", tls.VersionTLS13},
		{"invalid", tls.VersionTLS12},
		{"", tls.VersionTLS12},
	}

	for _, tt := range tests {
		if got := ParseTLSVersion(tt.input); got != tt.expected {
			t.Errorf("ParseTLSVersion(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestServerConfig_Build(t *testing.T) {
	var nilCfg *ServerConfig
	if cfg, err := nilCfg.Build(); cfg != nil || err != nil {
		t.Errorf("nil config: %v, %v", cfg, err)
	}

	disabled := &ServerConfig{CertFile: "cert.pem"}
	if cfg, err := disabled.Build(); cfg != nil || err != nil {
		t.Errorf("disabled config: %v, %v", cfg, err)
	}

	if _, err := (&ServerConfig{Enabled: true}).Build(); err == nil {
		t.Error("expected error without cert and key")
	}

	missing := &ServerConfig{Enabled: true, CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
	if _, err := missing.Build(); err == nil {
		t.Error("expected error for missing files")
	}
}

func TestClientConfig_Build(t *testing.T) {
	cfg, err := (&ClientConfig{ServerName: "app.vssps.visualstudio.com", MinVersion: "1.3"}).Build()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerName != "app.vssps.visualstudio.com" || cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("cfg = %+v", cfg)
	}

	bad := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(bad, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := (&ClientConfig{RootCAFile: bad}).Build(); err == nil {
		t.Error("expected error for invalid CA file")
	}
}
