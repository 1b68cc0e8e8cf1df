package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"azdoauth/internal/config"
	"azdoauth/internal/connector"
	"azdoauth/internal/health"
	"azdoauth/internal/host"
	"azdoauth/internal/provider"
	"azdoauth/internal/provider/azuredevops"
	"azdoauth/internal/telemetry"
	"azdoauth/pkg/metrics"
)

// Version is reported by the health endpoint and the telemetry resource
var Version = "dev"

// Builder builds the sign-in application
type Builder struct {
	config     *config.Config
	configPath string
	logger     *slog.Logger
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// NewBuilder creates a new application builder
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	return &Builder{
		config:     cfg,
		logger:     logger,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
}

// WithConfigPath enables hot reload of the given file
func (b *Builder) WithConfigPath(path string) *Builder {
	b.configPath = path
	return b
}

// WithRegistry uses a private Prometheus registry instead of the default one
func (b *Builder) WithRegistry(reg *prometheus.Registry) *Builder {
	b.registerer = reg
	b.gatherer = reg
	return b
}

// Build constructs the server. Nothing is started.
func (b *Builder) Build() (*Server, error) {
	telCfg := b.config.Telemetry
	if telCfg.Version == "" {
		telCfg.Version = Version
	}
	tel, err := telemetry.New(telCfg)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry: %w", err)
	}

	signIns, err := tel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating sign-in instruments: %w", err)
	}

	m := metrics.NewWithRegistry(b.registerer)

	registry, err := provider.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	checker := health.NewChecker()
	checker.Register("provider", health.ProviderCheck(registry, azuredevops.ID))

	s := &Server{
		configPath: b.configPath,
		logger:     b.logger,
		telemetry:  tel,
		metrics:    m,
		registry:   registry,
	}
	checker.Register("config", health.ConfigCheck(s.lastReloadError))

	s.host = host.New(host.Options{
		Registry:    registry,
		Metrics:     m,
		Gatherer:    b.gatherer,
		MetricsPath: b.config.Server.MetricsPath,
		Telemetry:   tel,
		SignIns:     signIns,
		Health:      checker,
		Version:     telCfg.Version,
		Logger:      b.logger,
	})

	if err := s.Apply(b.config); err != nil {
		return nil, err
	}

	srv := b.config.Server
	tlsConfig, err := srv.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("creating server tls: %w", err)
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", srv.Host, srv.Port),
		Handler:      s.host,
		ReadTimeout:  time.Duration(srv.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(srv.WriteTimeout) * time.Second,
		TLSConfig:    tlsConfig,
	}
	s.shutdownTimeout = time.Duration(srv.ShutdownTimeout) * time.Second

	return s, nil
}

// newDescriptor invokes the adapter factory for cfg
func (s *Server) newDescriptor(cfg *config.Config) (*azuredevops.Descriptor, *http.Client, error) {
	client, err := connector.NewHTTPClient(cfg.HTTP)
	if err != nil {
		return nil, nil, err
	}

	d := azuredevops.New(
		azuredevops.Options{
			ClientID:     cfg.Provider.ClientID,
			ClientSecret: cfg.Provider.ClientSecret,
			Scope:        cfg.Provider.Scope,
		},
		azuredevops.WithBaseURL(cfg.Provider.BaseURL),
		azuredevops.WithHTTPClient(client),
		azuredevops.WithLogger(s.logger),
		azuredevops.WithMetrics(s.metrics),
		azuredevops.WithTracer(s.telemetry.Tracer()),
	)
	return d, client, nil
}
