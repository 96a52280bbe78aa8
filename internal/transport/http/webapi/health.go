package webapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"gorm.io/gorm"

	"vetrina-server-go/internal/domain/content"
	"vetrina-server-go/internal/platform/logging"
	"vetrina-server-go/internal/platform/storage"
)

// HealthHandler reports liveness plus a durable-store round trip.
type HealthHandler struct {
	db      *gorm.DB
	cache   *content.Cache
	logger  *logging.Logger
	started time.Time
}

func NewHealthHandler(db *gorm.DB, cache *content.Cache, logger *logging.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, logger: logger, started: time.Now()}
}

// Health pings the database and reports latency and host stats. A failed
// ping answers 503.
func (h *HealthHandler) Health(c *gin.Context) {
	pingStart := time.Now()
	pingErr := storage.Ping(h.db)
	latency := time.Since(pingStart)

	body := gin.H{
		"uptime_sec": int(time.Since(h.started).Seconds()),
		"database": gin.H{
			"ok":         pingErr == nil,
			"latency_ms": latency.Milliseconds(),
		},
		"cache": h.cache.Stats(),
		"host":  hostStats(),
	}

	if pingErr != nil {
		h.logger.Error("health check database ping failed: %v", pingErr)
		c.JSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    body,
			Message: "database unavailable",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}
	RespondSuccess(c, http.StatusOK, body)
}

func hostStats() gin.H {
	stats := gin.H{}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["mem_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats["cpu_percent"] = percents[0]
	}
	return stats
}
