package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/camera"
)

// CameraController is satisfied by *camera.CameraManager.
type CameraController interface {
	Register(ctx context.Context, spec models.CameraSpec) error
	Stop(ctx context.Context, cameraID string) error
	List() []models.CameraResponse
	Get(cameraID string) (models.CameraResponse, bool)
}

type CameraHandler struct {
	cameras CameraController
}

func NewCameraHandler(cameras CameraController) *CameraHandler {
	return &CameraHandler{cameras: cameras}
}

// RegisterCamera starts violence detection on a camera
// @Summary Register a camera
// @Description Start watching a camera stream for violence
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body models.CameraRequest true "Camera to watch"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /registerCamera [post]
func (h *CameraHandler) RegisterCamera(c *gin.Context) {
	var req models.CameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Warn(c).Err(err).Msg("Invalid register camera request")
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	logging.SetCamera(c, req.CameraID)

	err := h.cameras.Register(c.Request.Context(), models.CameraSpec{
		CameraID: req.CameraID,
		UserID:   req.UserID,
		URL:      req.CameraURL,
	})
	switch {
	case err == nil:
	case errors.Is(err, camera.ErrAlreadyActive):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Camera is already active."})
		return
	case errors.Is(err, camera.ErrInvalidSpec):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, camera.ErrCapacity), errors.Is(err, camera.ErrShuttingDown):
		logging.Warn(c).Err(err).Msg("Camera rejected")
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error()})
		return
	default:
		logging.Error(c).Err(err).Msg("Failed to register camera")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Str("user_id", req.UserID).Msg("Camera processing started")
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Camera processing started."})
}

// StopCamera stops watching a camera
// @Summary Stop a camera
// @Description Stop a running camera worker and wait for it to exit
// @Tags cameras
// @Accept json
// @Produce json
// @Param request body models.StopCameraRequest true "Camera to stop"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /stopCamera [post]
func (h *CameraHandler) StopCamera(c *gin.Context) {
	var req models.StopCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	logging.SetCamera(c, req.CameraID)

	err := h.cameras.Stop(c.Request.Context(), req.CameraID)
	switch {
	case err == nil:
	case errors.Is(err, camera.ErrNotActive):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Camera is not active."})
		return
	default:
		logging.Error(c).Err(err).Msg("Failed to stop camera")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Msg("Camera stopped")
	c.JSON(http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Camera %s stopped successfully.", req.CameraID),
	})
}

// ListCameras lists all active cameras
// @Summary List active cameras
// @Description Health and detection state of every active camera
// @Tags cameras
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /cameras [get]
func (h *CameraHandler) ListCameras(c *gin.Context) {
	cameras := h.cameras.List()
	c.JSON(http.StatusOK, gin.H{
		"cameras": cameras,
		"count":   len(cameras),
	})
}

// GetCamera gets camera details
// @Summary Get camera details
// @Description Health and detection state of one camera
// @Tags cameras
// @Produce json
// @Param id path string true "Camera ID"
// @Success 200 {object} models.CameraResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /cameras/{id} [get]
func (h *CameraHandler) GetCamera(c *gin.Context) {
	cameraID := c.Param("id")
	cam, ok := h.cameras.Get(cameraID)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Camera is not active."})
		return
	}
	c.JSON(http.StatusOK, cam)
}
