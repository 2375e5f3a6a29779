package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careflow/appointment-agent/internal/availability"
	"github.com/careflow/appointment-agent/internal/booking"
	"github.com/careflow/appointment-agent/internal/conversation"
	"github.com/careflow/appointment-agent/internal/directory"
	"github.com/careflow/appointment-agent/internal/triage"
)

type stubTriager struct{}

func (stubTriager) Classify(context.Context, string) triage.Result {
	return triage.FallbackResult()
}

type stubBooker struct{}

func (stubBooker) GetFreeSlots(context.Context, int, time.Time) ([]availability.Slot, error) {
	return nil, nil
}
func (stubBooker) Book(context.Context, booking.Request) error { return nil }
func (stubBooker) Location() *time.Location                    { return time.UTC }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir, err := directory.New(directory.DefaultProviders())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	controller := conversation.NewController(
		conversation.NewMemoryStore(), stubTriager{}, dir, stubBooker{}, nil, nil,
	)
	return New(&Config{
		SessionHandler: conversation.NewHandler(controller, nil),
		MetricsHandler: promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}),
	})
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
}

func TestRouter_SessionsMounted(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d, want 404", rec.Code)
	}
}
