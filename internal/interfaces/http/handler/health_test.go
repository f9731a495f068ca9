package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func healthy(context.Context) error { return nil }

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/live", h.Live)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth_ReportsVersion(t *testing.T) {
	w := serveHealth(newHealthHandler("1.2.3", nil), "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)

	assert.Equal(t, http.StatusOK, serveHealth(newHealthHandler("", nil), "/live").Code)
}

func TestReady(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		h := newHealthHandler("", map[string]HealthChecker{
			"postgres": checkerFunc(healthy),
			"redis":    checkerFunc(healthy),
		})
		assert.Equal(t, http.StatusOK, serveHealth(h, "/ready").Code)
	})

	t.Run("redis down", func(t *testing.T) {
		h := newHealthHandler("", map[string]HealthChecker{
			"postgres": checkerFunc(healthy),
			"redis":    checkerFunc(func(context.Context) error { return errors.New("connection refused") }),
		})
		w := serveHealth(h, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp readinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "error", resp.Checks["redis"].Status)
		assert.Equal(t, "ok", resp.Checks["postgres"].Status)
	})

	t.Run("postgres not configured", func(t *testing.T) {
		h := newHealthHandler("", map[string]HealthChecker{"redis": checkerFunc(healthy)})
		w := serveHealth(h, "/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "postgres client not configured")
	})
}
