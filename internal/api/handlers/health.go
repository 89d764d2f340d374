package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/dfs-showdown/pkg/database"
)

// Pinger is anything with a cheap liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

type HealthHandler struct {
	db    *database.DB
	cache Pinger
}

// NewHealthHandler builds the handler. cache may be nil when redis is not
// configured.
func NewHealthHandler(db *database.DB, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// GetHealth reports degraded when the cache is down; the service still
// optimizes without it.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	resp := h.check(c.Request.Context(), "ok")
	status := http.StatusOK
	switch {
	case resp.Checks["database"] != "ok":
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case resp.Checks["redis"] != "ok" && resp.Checks["redis"] != "not_configured":
		resp.Status = "degraded"
	}
	c.JSON(status, resp)
}

// GetReady requires the database.
func (h *HealthHandler) GetReady(c *gin.Context) {
	resp := h.check(c.Request.Context(), "ready")
	status := http.StatusOK
	if resp.Checks["database"] != "ok" {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h *HealthHandler) check(ctx context.Context, okStatus string) HealthStatus {
	resp := HealthStatus{
		Status:    okStatus,
		Service:   "dfs-showdown",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp.Checks["database"] = "not_configured"
	if h.db != nil {
		if sqlDB, err := h.db.DB.DB(); err != nil {
			resp.Checks["database"] = "failed: " + err.Error()
		} else if err := sqlDB.PingContext(ctx); err != nil {
			resp.Checks["database"] = "failed: " + err.Error()
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	resp.Checks["redis"] = "not_configured"
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			resp.Checks["redis"] = "failed: " + err.Error()
		} else {
			resp.Checks["redis"] = "ok"
		}
	}
	return resp
}
