// Package azdotest is an in-memory stand-in for the Azure DevOps OAuth
// and profile endpoints. Client assertions and access tokens are HS256
// JWTs signed with Server.Key.
package azdotest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"azdoauth/internal/provider/azuredevops"
)

// DefaultKey signs tokens when Config.Key is empty
const DefaultKey = "azdotest-signing-key"

// User is the profile returned for every access token
type User struct {
	ID          string
	DisplayName string
	Email       string
	// Avatar is the base64 payload; empty omits coreAttributes.Avatar
	Avatar string
}

// Config configures the mock
type Config struct {
	Key      string
	ClientID string
	User     User
	// TokenLifetime is reported as expires_in, as a string like Azure does
	TokenLifetime time.Duration
}

// Server implements http.Handler
type Server struct {
	cfg Config
	mux *http.ServeMux

	mu    sync.Mutex
	codes map[string]string // code -> redirect_uri
	calls map[string]int
}

func New(cfg Config) *Server {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.TokenLifetime == 0 {
		cfg.TokenLifetime = time.Hour
	}

	s := &Server{
		cfg:   cfg,
		mux:   http.NewServeMux(),
		codes: make(map[string]string),
		calls: make(map[string]int),
	}
	s.mux.HandleFunc("GET /oauth2/authorize", s.authorize)
	s.mux.HandleFunc("POST /oauth2/token", s.token)
	s.mux.HandleFunc("GET /_apis/profile/profiles/me", s.profile)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	s.mu.Unlock()
	s.mux.ServeHTTP(w, r)
}

// Calls returns how many requests hit path
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Assertion returns a client assertion signed with the server key
func (s *Server) Assertion(ttl time.Duration) (string, error) {
	return Sign(s.cfg.Key, jwt.MapClaims{
		"sub": s.cfg.ClientID,
		"iss": "app.vstoken.visualstudio.com",
		"exp": time.Now().Add(ttl).Unix(),
	})
}

// Sign issues an HS256 JWT with claims
func Sign(key string, claims jwt.MapClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// authorize approves immediately and redirects back with a one-time code
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || !redirect.IsAbs() {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	back := redirect.Query()
	switch {
	case q.Get("response_type") != azuredevops.ResponseType:
		back.Set("error", "unsupported_response_type")
	case s.cfg.ClientID != "" && q.Get("client_id") != s.cfg.ClientID:
		back.Set("error", "invalid_client")
	default:
		code := newCode()
		s.mu.Lock()
		s.codes[code] = redirect.String()
		s.mu.Unlock()
		back.Set("code", code)
	}
	back.Set("state", q.Get("state"))
	redirect.RawQuery = back.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		tokenError(w, "invalid_request", err.Error())
		return
	}
	f := r.PostForm

	if f.Get("client_assertion_type") != azuredevops.ClientAssertionType ||
		f.Get("grant_type") != azuredevops.GrantType {
		tokenError(w, "unsupported_grant_type", "expected the jwt-bearer grant")
		return
	}
	if _, err := s.verify(f.Get("client_assertion")); err != nil {
		tokenError(w, "invalid_client", err.Error())
		return
	}

	s.mu.Lock()
	redirect, ok := s.codes[f.Get("assertion")]
	delete(s.codes, f.Get("assertion"))
	s.mu.Unlock()
	if !ok {
		tokenError(w, "invalid_grant", "unknown or reused code")
		return
	}
	if redirect != f.Get("redirect_uri") {
		tokenError(w, "invalid_grant", "redirect_uri mismatch")
		return
	}

	access, err := Sign(s.cfg.Key, jwt.MapClaims{
		"nameid": s.cfg.User.ID,
		"exp":    time.Now().Add(s.cfg.TokenLifetime).Unix(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"token_type":    "jwt-bearer",
		"expires_in":    fmt.Sprintf("%d", int(s.cfg.TokenLifetime.Seconds())),
		"refresh_token": newCode(),
		"scope":         "vso.profile",
	})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bearer token required"})
		return
	}
	if _, err := s.verify(raw); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": err.Error()})
		return
	}

	u := s.cfg.User
	body := map[string]any{
		"id":             u.ID,
		"displayName":    u.DisplayName,
		"publicAlias":    u.ID,
		"emailAddress":   u.Email,
		"coreAttributes": map[string]any{},
	}
	if u.Avatar != "" {
		body["coreAttributes"] = map[string]any{
			"Avatar": map[string]any{
				"descriptor": "Avatar",
				"value": map[string]any{
					"isAutoGenerated": false,
					"size":            "medium",
					"value":           u.Avatar,
				},
			},
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) verify(raw string) (*jwt.Token, error) {
	return jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
}

func tokenError(w http.ResponseWriter, code, description string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"Error":            code,
		"ErrorDescription": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newCode() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
