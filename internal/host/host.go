// Package host is a minimal sign-in harness around registered provider
// descriptors. It redirects to the provider, drives the callback through
// Provider.SignIn and returns the normalized user. It keeps no sessions
// and does not check state.
package host

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"azdoauth/internal/health"
	internalmetrics "azdoauth/internal/metrics"
	"azdoauth/internal/middleware"
	"azdoauth/internal/provider"
	"azdoauth/internal/telemetry"
	"azdoauth/pkg/errors"
	"azdoauth/pkg/metrics"
)

// Options wires the harness to its collaborators. Registry is required.
type Options struct {
	Registry *provider.Registry
	Metrics  *metrics.Metrics
	// Gatherer backs the metrics endpoint; nil means the default registry
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Telemetry   *telemetry.Telemetry
	SignIns     *telemetry.Metrics
	Health      *health.Checker
	Version     string
	Logger      *slog.Logger
}

// Server serves the sign-in routes.
type Server struct {
	opts    Options
	logger  *slog.Logger
	handler http.Handler
}

// New builds the route table and middleware chain.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Health == nil {
		opts.Health = health.NewChecker()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "host"),
	}

	mux := http.NewServeMux()
	routes := map[string]http.Handler{
		"GET /signin/{provider}":   http.HandlerFunc(s.signIn),
		"GET /callback/{provider}": http.HandlerFunc(s.callback),
		"GET /providers":           http.HandlerFunc(s.providers),
		"GET /healthz":             health.Handler(opts.Health, opts.Version),
		"GET " + opts.MetricsPath:  internalmetrics.Handler(opts.Gatherer),
	}
	for pattern, h := range routes {
		mux.Handle(pattern, middleware.Route(h))
	}

	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
	}
	if opts.Metrics != nil {
		chain = append(chain, middleware.Metrics(opts.Metrics))
	}
	var h http.Handler = mux
	if opts.Telemetry != nil {
		h = opts.Telemetry.WrapHTTP(h)
	}
	s.handler = middleware.Chain(chain...)(h)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// resolve returns the provider and the credentials it is driven with
func (s *Server) resolve(id string) (provider.Provider, provider.ProviderContext, error) {
	p, pc, err := s.opts.Registry.Resolve(id)
	if err != nil {
		return nil, provider.ProviderContext{}, err
	}
	if pc.ClientID == "" {
		return nil, provider.ProviderContext{}, errors.NewError(errors.ErrorTypeUnavailable, "provider has no credentials").
			WithDetail("provider", id)
	}
	return p, pc, nil
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("provider")
	p, pc, err := s.resolve(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	state, err := newState()
	if err != nil {
		s.writeError(w, errors.NewError(errors.ErrorTypeInternal, "failed to generate state").WithCause(err))
		return
	}

	target, err := p.AuthCodeURL(pc.ClientID, pc.CallbackURL, state)
	if err != nil {
		s.writeError(w, errors.NewError(errors.ErrorTypeInternal, "failed to build authorization url").WithCause(err))
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("provider")
	q := r.URL.Query()

	// The provider redirects back with error instead of code on denial
	if e := q.Get("error"); e != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             e,
			"error_description": q.Get("error_description"),
		})
		return
	}

	code := q.Get("code")
	if code == "" {
		s.writeError(w, errors.NewError(errors.ErrorTypeBadRequest, "missing code parameter"))
		return
	}

	p, pc, err := s.resolve(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	if s.opts.Telemetry != nil {
		var span trace.Span
		ctx, span = s.opts.Telemetry.StartSpan(ctx, "host.signin", attribute.String("provider", id))
		defer span.End()
	}

	start := time.Now()
	result, err := p.SignIn(ctx, provider.TokenContext{
		Params:   provider.CallbackParams{Code: code, State: q.Get("state")},
		Provider: pc,
	})
	s.record(r, id, err, time.Since(start))
	if err != nil {
		s.logger.Warn("sign-in failed", "provider", id, "error", err)
		s.writeError(w, err)
		return
	}

	s.logger.Info("sign-in completed", "provider", id, "user", result.User.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": result.Provider,
		"user":     result.User,
	})
}

func (s *Server) providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Registry.List())
}

func (s *Server) record(r *http.Request, id string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = string(errors.TypeOf(err))
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.SignInsTotal.WithLabelValues(id, outcome).Inc()
	}
	s.opts.SignIns.RecordSignIn(r.Context(), id, outcome, d)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.StatusCode(err), map[string]string{
		"error":   string(errors.TypeOf(err)),
		"message": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newState returns an opaque value for the authorization request. The
// harness never reads it back.
func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
