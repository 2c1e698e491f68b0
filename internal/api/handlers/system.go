package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/services/workerpool"
)

// PoolStats is satisfied by *workerpool.Pool.
type PoolStats interface {
	Stats() workerpool.Stats
}

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startedAt time.Time
	pool      PoolStats
	cameras   CameraCounter
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, pool PoolStats, cameras CameraCounter) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startedAt: time.Now(),
		pool:      pool,
		cameras:   cameras,
	}
}

// @Summary Get system stats
// @Description Process, worker pool and camera statistics
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := gin.H{
		"worker_id":      h.WorkerID,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"cpu_cores":      runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
	}
	if h.pool != nil {
		stats["pool"] = h.pool.Stats()
	}
	if h.cameras != nil {
		stats["active_cameras"] = h.cameras.ActiveCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}
