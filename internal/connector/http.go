// Package connector builds the outbound HTTP client used to reach the
// identity provider.
package connector

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"azdoauth/internal/config"
)

// NewHTTPClient returns a client with a pooled transport tuned by cfg.
// Zero values fall back to net/http defaults.
func NewHTTPClient(cfg config.HTTPClient) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   time.Duration(cfg.DialTimeout) * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       time.Duration(cfg.IdleConnTimeout) * time.Second,
		ResponseHeaderTimeout: time.Duration(cfg.ResponseHeaderTimeout) * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	tlsConfig, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
	}, nil
}
