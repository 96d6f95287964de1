package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/events"
	"checkpoint/internal/platform/metrics"
	"checkpoint/pkg/platform/middleware/request"
	"checkpoint/pkg/requestcontext"
	"checkpoint/pkg/testutil"
)

type echoRoutes struct{}

func (echoRoutes) Register(r chi.Router) {
	r.Get("/api/echo", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, _ = w.Write([]byte(requestcontext.RequestID(ctx) + "|" + requestcontext.UserAgent(ctx)))
	})
	r.Get("/api/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
}

func newTestRouter(checks map[string]HealthCheck) http.Handler {
	return NewRouter(Deps{
		Logger:      testutil.DiscardLogger(),
		ServiceID:   "checkpoint-test",
		Publisher:   events.NewDisabled(events.WithLogger(testutil.DiscardLogger())),
		Checks:      checks,
		Registry:    metrics.NewRegistry(),
		HTTPMetrics: metrics.NewHTTP(nil),
		Routes:      []Routes{echoRoutes{}},
	})
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

		testutil.AssertStatus(t, rr, http.StatusOK)
		body := testutil.UnmarshalResponse[HealthResponse](t, rr)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "checkpoint-test", body.Service)
		assert.False(t, body.Publisher.Enabled)
		assert.Equal(t, "uninitialized", body.Publisher.State)
		assert.Equal(t, "ok", body.Checks["postgres"])
	})

	t.Run("failing dependency", func(t *testing.T) {
		router := newTestRouter(map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		})
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		body := testutil.UnmarshalResponse[HealthResponse](t, rr)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "connection refused", body.Checks["redis"])
	})
}

func TestMiddlewareChain(t *testing.T) {
	router := newTestRouter(nil)

	req := testutil.NewRequest(t, http.MethodGet, "/api/echo")
	req.Header.Set(request.HeaderRequestID, "req-42")
	req.Header.Set("User-Agent", "kiosk/1.0")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "req-42|kiosk/1.0", rr.Body.String())
	assert.Equal(t, "req-42", rr.Header().Get(request.HeaderRequestID))
}

func TestPanicIsRecovered(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(nil), testutil.NewRequest(t, http.MethodGet, "/api/panic"))
	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(nil)
	testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	require.Contains(t, rr.Body.String(), "go_goroutines")
}
