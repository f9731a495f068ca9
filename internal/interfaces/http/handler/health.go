// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"solidwriter-api/internal/infrastructure/persistence/postgres"
	"solidwriter-api/internal/infrastructure/persistence/redis"
)

const readyTimeout = 2 * time.Second

// requiredDependencies 就绪所需的依赖，缺一不可
var requiredDependencies = []string{"postgres", "redis"}

// HealthChecker 依赖健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	checks  map[string]HealthChecker
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, version string) *HealthHandler {
	checks := make(map[string]HealthChecker, len(requiredDependencies))
	if pg != nil {
		checks["postgres"] = pg
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	return newHealthHandler(version, checks)
}

func newHealthHandler(version string, checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

func (rc *readinessCheck) ok() bool { return rc.Status == "ok" }

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 并发检查 postgres 与 redis，任一失败返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	results := make(map[string]*readinessCheck, len(requiredDependencies))
	var g errgroup.Group
	for _, name := range requiredDependencies {
		rc := &readinessCheck{}
		results[name] = rc

		checker, ok := h.checks[name]
		if !ok {
			rc.Status = "missing"
			rc.Error = name + " client not configured"
			continue
		}
		g.Go(func() error {
			probe(ctx, checker, rc)
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{Status: "ok", Checks: results}
	for _, rc := range results {
		if !rc.ok() {
			resp.Status = "not_ready"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func probe(ctx context.Context, checker HealthChecker, rc *readinessCheck) {
	start := time.Now()
	err := checker.HealthCheck(ctx)
	rc.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		rc.Status = "error"
		rc.Error = err.Error()
		return
	}
	rc.Status = "ok"
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
