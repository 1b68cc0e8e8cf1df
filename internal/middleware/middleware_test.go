package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"azdoauth/pkg/metrics"
	"azdoauth/pkg/requestid"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("first"), mark("second"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "first,second,handler" {
		t.Errorf("order = %v", order)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(requestid.Header) != seen {
		t.Errorf("generated id %q, header %q", seen, rec.Header().Get(requestid.Header))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "caller-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "caller-id" {
		t.Errorf("id = %q, want caller-id", seen)
	}
}

func TestLogging_OmitsQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback/azure-devops?code=secret-code", nil))

	out := buf.String()
	if strings.Contains(out, "secret-code") {
		t.Errorf("log leaked query: %s", out)
	}
	if !strings.Contains(out, "status=418") {
		t.Errorf("log missing status: %s", out)
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /signin/{provider}", Route(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})))

	tests := []struct {
		name    string
		path    string
		pattern string
		status  string
	}{
		{name: "matched route", path: "/signin/azure-devops", pattern: "GET /signin/{provider}", status: "302"},
		{name: "unmatched path", path: "/nope/azure-devops", pattern: UnmatchedRoute, status: "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewWithRegistry(prometheus.NewRegistry())
			h := Chain(RequestID(), Metrics(m))(mux)

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, tt.pattern, tt.status))
			if got != 1 {
				t.Errorf("requests_total{route=%q} = %v, want 1", tt.pattern, got)
			}
		})
	}
}

func TestMetrics_BoundedRouteLabels(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	mux := http.NewServeMux()
	mux.Handle("GET /signin/{provider}", Route(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))
	h := Metrics(m)(mux)

	for i := range 100 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/signin/x-"+strconv.Itoa(i), nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/"+strconv.Itoa(i), nil))
	}

	if n := testutil.CollectAndCount(m.RequestsTotal); n != 2 {
		t.Errorf("requests_total series = %d, want 2", n)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "GET /signin/{provider}", "404")); got != 100 {
		t.Errorf("signin route count = %v, want 100", got)
	}
	if n := testutil.CollectAndCount(m.RequestDuration); n != 2 {
		t.Errorf("request_duration series = %d, want 2", n)
	}
}
