package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"azdoauth/internal/config"
	"azdoauth/internal/host"
	"azdoauth/internal/provider"
	"azdoauth/internal/provider/azuredevops"
	"azdoauth/internal/telemetry"
	"azdoauth/pkg/metrics"
)

// Server runs the sign-in harness and, when a config path is set, the
// config watcher
type Server struct {
	configPath      string
	logger          *slog.Logger
	telemetry       *telemetry.Telemetry
	metrics         *metrics.Metrics
	registry        *provider.Registry
	host            *host.Server
	httpServer      *http.Server
	shutdownTimeout time.Duration

	mu        sync.Mutex
	client    *http.Client
	reloadErr error
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewServer creates a new sign-in server
func NewServer(cfg *config.Config, configPath string, logger *slog.Logger) (*Server, error) {
	return NewBuilder(cfg, logger).WithConfigPath(configPath).Build()
}

// Handler exposes the routes without a listener
func (s *Server) Handler() http.Handler {
	return s.host
}

// ShutdownTimeout is the configured grace period for Stop
func (s *Server) ShutdownTimeout() time.Duration {
	return s.shutdownTimeout
}

// Apply rebuilds the Azure DevOps descriptor from cfg and swaps it, with its
// credentials, into the registry. In-flight sign-ins keep the descriptor they
// started with; idle connections of the replaced client are closed.
func (s *Server) Apply(cfg *config.Config) error {
	d, client, err := s.newDescriptor(cfg)
	if err != nil {
		return fmt.Errorf("building provider: %w", err)
	}

	s.mu.Lock()
	s.registry.Replace(d, provider.ProviderContext{
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		CallbackURL:  cfg.Server.CallbackURL,
	})
	prev := s.client
	s.client = client
	s.mu.Unlock()

	if prev != nil {
		prev.CloseIdleConnections()
	}

	s.logger.Info("provider configured",
		"provider", azuredevops.ID,
		"scope", d.Authorization.Params["scope"],
		"secret_set", cfg.Provider.ClientSecret != "",
	)
	return nil
}

// Start binds the listener and returns once it is accepting connections.
// The server runs until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	if s.httpServer.TLSConfig != nil {
		ln = tls.NewListener(ln, s.httpServer.TLSConfig)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "error", err)
		}
	}()

	if s.configPath != "" {
		w, err := config.NewWatcher(s.configPath, &config.WatcherConfig{
			DebounceDuration: config.DefaultWatcherConfig().DebounceDuration,
			OnChange:         s.reload,
			OnError:          s.setReloadError,
		}, s.logger)
		if err != nil {
			cancel()
			_ = s.httpServer.Close()
			return fmt.Errorf("starting config watcher: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(runCtx)
		}()
	}

	go func() {
		wg.Wait()
		close(s.done)
	}()

	s.logger.Info("sign-in server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts down the listener, the watcher and the telemetry exporters
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if s.cancel != nil {
		s.cancel()
		select {
		case <-s.done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client != nil {
		client.CloseIdleConnections()
	}

	s.logger.Info("sign-in server stopped")
	return errors.Join(errs...)
}

func (s *Server) reload(cfg *config.Config) error {
	if err := s.Apply(cfg); err != nil {
		return err
	}
	s.setReloadError(nil)
	return nil
}

func (s *Server) setReloadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadErr = err
}

// lastReloadError is cleared by the next successful reload
func (s *Server) lastReloadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadErr
}
