package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New failed for disabled telemetry: %v", err)
	}
	if tel.Tracer() == nil || tel.meter == nil || tel.propagator == nil {
		t.Fatal("disabled telemetry should still expose no-op providers")
	}

	ctx, span := tel.StartSpan(context.Background(), "noop", attribute.String("k", "v"))
	span.End()

	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNew_EnabledWithoutExporters(t *testing.T) {
	tel, err := New(Config{Enabled: true, Service: "azdoauth-test", Version: "test"})
	if err != nil {
		// Resource detection can fail in sandboxed environments
		t.Logf("New returned error (may be expected in test): %v", err)
		return
	}
	if tel.resource == nil {
		t.Error("expected resource to be initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func newRecordingTelemetry(t *testing.T) (*Telemetry, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return &Telemetry{
		tracer:     tp.Tracer("test"),
		meter:      mp.Meter("test"),
		propagator: propagation.TraceContext{},
	}, recorder, reader
}

func TestWrapHTTP(t *testing.T) {
	tel, recorder, _ := newRecordingTelemetry(t)

	handler := tel.WrapHTTP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback/azure-devops", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "GET /callback/azure-devops" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want error", spans[0].Status().Code)
	}
}

func TestRecordSignIn(t *testing.T) {
	tel, _, reader := newRecordingTelemetry(t)

	m, err := tel.NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordSignIn(context.Background(), "azure-devops", "success", 150*time.Millisecond)
	m.RecordSignIn(context.Background(), "azure-devops", "success", 50*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "azdoauth.signin.attempts" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", md.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("signin attempts = %d, want 2", total)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordSignIn(context.Background(), "x", "y", time.Second)
}
