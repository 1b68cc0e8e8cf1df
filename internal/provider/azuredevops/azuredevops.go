// Package azuredevops adapts the Azure DevOps OAuth2 dialect to the
// provider descriptor consumed by the host authentication framework.
//
// Azure DevOps deviates from a plain authorization-code flow in three ways:
// the authorize step asks for response_type=Assertion, the token exchange
// uses the JWT-bearer grant with the app secret as client assertion, and
// the profile API returns the avatar inline as base64.
package azuredevops

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"azdoauth/internal/provider"
	"azdoauth/pkg/metrics"
)

const (
	ID   = "azure-devops"
	Name = "Azure DevOps"

	// DefaultScope is used when Options.Scope is empty. See
	// https://learn.microsoft.com/azure/devops/integrate/get-started/authentication/oauth#scopes
	DefaultScope = "vso.profile"

	DefaultBaseURL = "https://app.vssps.visualstudio.com"

	ResponseType        = "Assertion"
	ClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	GrantType           = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	authorizePath = "/oauth2/authorize"
	tokenPath     = "/oauth2/token"
	profilePath   = "/_apis/profile/profiles/me?details=true&coreAttributes=Avatar&api-version=6.0"
)

// Options are the caller-supplied settings for the adapter.
type Options struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	Scope        string `yaml:"scope"`
}

// Descriptor is the descriptor type returned by New.
type Descriptor = provider.Descriptor[*Profile, Options]

type adapter struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures the collaborators used by the descriptor's requests.
type Option func(*adapter)

// WithHTTPClient sets the client used for the token and profile calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *adapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *adapter) { a.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *adapter) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithBaseURL points every endpoint at another host.
func WithBaseURL(u string) Option {
	return func(a *adapter) {
		if u != "" {
			a.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(a *adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// New returns the Azure DevOps descriptor for opts. It performs no I/O and
// keeps no state beyond the returned closures.
func New(opts Options, options ...Option) *Descriptor {
	a := &adapter{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		tracer:     otel.GetTracerProvider().Tracer("azdoauth/azuredevops"),
		now:        time.Now,
	}
	for _, o := range options {
		o(a)
	}
	a.logger = a.logger.With("provider", ID)

	scope := opts.Scope
	if scope == "" {
		scope = DefaultScope
	}

	return &Descriptor{
		ID:   ID,
		Name: Name,
		Type: provider.TypeOAuth,
		Authorization: provider.Authorization{
			URL: a.baseURL + authorizePath,
			Params: map[string]string{
				"response_type": ResponseType,
				"scope":         scope,
			},
		},
		Token: provider.TokenEndpoint{
			URL:     a.baseURL + tokenPath,
			Request: a.requestToken,
		},
		Userinfo: provider.UserinfoEndpoint[*Profile]{
			URL:     a.baseURL + profilePath,
			Request: a.requestUserinfo,
		},
		Profile: MapProfile,
		Options: opts,
	}
}
