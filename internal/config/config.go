package config

import (
	"azdoauth/internal/telemetry"
	"azdoauth/pkg/tls"
)

// Config holds the service configuration
type Config struct {
	Provider  Provider         `yaml:"provider"`
	Server    Server           `yaml:"server"`
	HTTP      HTTPClient       `yaml:"http"`
	Log       Log              `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Provider holds the caller options handed to the Azure DevOps adapter
type Provider struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	// Scope is space separated; empty means the adapter default
	Scope   string `yaml:"scope"`
	BaseURL string `yaml:"baseUrl"`
}

// Server configures the sign-in harness listener
type Server struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	CallbackURL     string `yaml:"callbackUrl"`
	ReadTimeout     int    `yaml:"readTimeout"`     // seconds
	WriteTimeout    int    `yaml:"writeTimeout"`    // seconds
	ShutdownTimeout int    `yaml:"shutdownTimeout"` // seconds
	MetricsPath     string `yaml:"metricsPath"`

	TLS *tls.ServerConfig `yaml:"tls"`
}

// HTTPClient configures outbound calls to the identity provider
type HTTPClient struct {
	// Timeout bounds a whole request including the body
	Timeout               int `yaml:"timeout"`               // seconds
	DialTimeout           int `yaml:"dialTimeout"`           // seconds
	ResponseHeaderTimeout int `yaml:"responseHeaderTimeout"` // seconds
	IdleConnTimeout       int `yaml:"idleConnTimeout"`       // seconds
	MaxIdleConns          int `yaml:"maxIdleConns"`
	MaxIdleConnsPerHost   int `yaml:"maxIdleConnsPerHost"`

	TLS *tls.ClientConfig `yaml:"tls"`
}

type Log struct {
	Level string `yaml:"level"`
}
