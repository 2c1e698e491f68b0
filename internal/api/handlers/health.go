package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClassifierHealth reports whether the classifier backend is reachable.
type ClassifierHealth interface {
	IsHealthy() bool
}

// CameraCounter reports the number of active camera workers.
type CameraCounter interface {
	ActiveCount() int
}

type HealthHandler struct {
	WorkerID   string
	Version    string
	classifier ClassifierHealth
	cameras    CameraCounter
}

func NewHealthHandler(workerID, version string, classifier ClassifierHealth, cameras CameraCounter) *HealthHandler {
	return &HealthHandler{
		WorkerID:   workerID,
		Version:    version,
		classifier: classifier,
		cameras:    cameras,
	}
}

type HealthResponse struct {
	Status           string `json:"status" example:"healthy"`
	WorkerID         string `json:"worker_id" example:"vigil-1"`
	ClassifierHealth bool   `json:"classifier_healthy"`
	ActiveCameras    int    `json:"active_cameras"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"vigil-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Worker liveness; status is degraded while the classifier is unreachable
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	healthy := h.classifier == nil || h.classifier.IsHealthy()
	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	active := 0
	if h.cameras != nil {
		active = h.cameras.ActiveCount()
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:           status,
		WorkerID:         h.WorkerID,
		ClassifierHealth: healthy,
		ActiveCameras:    active,
	})
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"live_violence_detection",
			"clip_recording",
			"video_analysis",
		},
	})
}
