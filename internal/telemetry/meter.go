package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments for sign-in attempts
type Metrics struct {
	signIns        metric.Int64Counter
	signInDuration metric.Float64Histogram
}

// NewMetrics creates the sign-in instruments on the telemetry meter
func (t *Telemetry) NewMetrics() (*Metrics, error) {
	signIns, err := t.meter.Int64Counter(
		"azdoauth.signin.attempts",
		metric.WithDescription("Sign-in attempts driven through a provider descriptor"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signin counter: %w", err)
	}

	signInDuration, err := t.meter.Float64Histogram(
		"azdoauth.signin.duration",
		metric.WithDescription("Time from callback to normalized user"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signin histogram: %w", err)
	}

	return &Metrics{signIns: signIns, signInDuration: signInDuration}, nil
}

// RecordSignIn records one attempt with its outcome
func (m *Metrics) RecordSignIn(ctx context.Context, provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)
	m.signIns.Add(ctx, 1, attrs)
	m.signInDuration.Record(ctx, d.Seconds(), attrs)
}
