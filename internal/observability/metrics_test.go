package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/:id", http.MethodGet, 200, 2*time.Millisecond)
	m.RecordRequest("/tickets/:id", http.MethodGet, 200, 4*time.Millisecond)
	m.RecordRequest("/auth/login", http.MethodPost, 401, time.Millisecond)
	m.RecordError("/auth/login", http.MethodPost, "INVALID_CREDENTIALS")

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 2)
	assert.Equal(t, "/auth/login", snap.Requests[0].Path)
	assert.Equal(t, int64(2), snap.Requests[1].Count)
	assert.InDelta(t, 3.0, snap.Requests[1].AvgLatencyMs, 0.001)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "INVALID_CREDENTIALS", snap.Errors[0].Code)

	var nilMetrics *Metrics
	nilMetrics.RecordRequest("/x", http.MethodGet, 200, 0)
	assert.Empty(t, nilMetrics.Snapshot().Requests)
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	for _, path := range []string{"/tickets/1", "/tickets/2"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, "/tickets/:id", snap.Requests[0].Path)
	assert.Equal(t, http.StatusNoContent, snap.Requests[0].Status)
	assert.Equal(t, int64(2), snap.Requests[0].Count)
}
