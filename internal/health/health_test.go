package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"azdoauth/internal/provider"
)

func TestChecker_Run(t *testing.T) {
	c := NewChecker()
	c.Register("ok", func(ctx context.Context) error { return nil })
	c.Register("broken", func(ctx context.Context) error { return errors.New("down") })

	results := c.Run(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["ok"].Status != StatusHealthy {
		t.Errorf("ok = %+v", results["ok"])
	}
	if results["broken"].Status != StatusUnhealthy || results["broken"].Error != "down" {
		t.Errorf("broken = %+v", results["broken"])
	}

	if names := c.Names(); len(names) != 2 || names[0] != "broken" {
		t.Errorf("Names() = %v", names)
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checkErr   error
		wantCode   int
		wantStatus Status
	}{
		{"healthy", nil, http.StatusOK, StatusHealthy},
		{"unhealthy", errors.New("no provider"), http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.Register("provider", func(ctx context.Context) error { return tt.checkErr })

			rec := httptest.NewRecorder()
			Handler(c, "test").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var body Response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantStatus || body.Version != "test" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

type stubProvider struct{ id string }

func (s stubProvider) Info() provider.Info { return provider.Info{ID: s.id} }
func (s stubProvider) AuthCodeURL(string, string, string) (string, error) {
	return "", nil
}
func (s stubProvider) SignIn(context.Context, provider.TokenContext) (*provider.SignIn, error) {
	return nil, nil
}

func TestProviderCheck(t *testing.T) {
	reg, err := provider.NewRegistry(stubProvider{id: "azure-devops"})
	if err != nil {
		t.Fatal(err)
	}

	if err := ProviderCheck(reg, "azure-devops")(context.Background()); err != nil {
		t.Errorf("registered provider: %v", err)
	}
	if err := ProviderCheck(reg, "github")(context.Background()); err == nil {
		t.Error("expected error for missing provider")
	}
}

func TestConfigCheck(t *testing.T) {
	var last error
	check := ConfigCheck(func() error { return last })
	if err := check(context.Background()); err != nil {
		t.Fatal(err)
	}
	last = errors.New("reload failed")
	if err := check(context.Background()); err == nil {
		t.Error("expected reload error")
	}
}
