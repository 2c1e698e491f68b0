package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/batch"
)

// VideoEnqueuer is satisfied by *batch.Processor.
type VideoEnqueuer interface {
	Enqueue(ctx context.Context, job models.VideoJob) error
}

type VideoHandler struct {
	videos VideoEnqueuer
}

func NewVideoHandler(videos VideoEnqueuer) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// RegisterVideo queues a pre-recorded video for analysis
// @Summary Register a video
// @Description Classify a whole video; the result is written to video_analysis
// @Tags videos
// @Accept json
// @Produce json
// @Param request body models.VideoRequest true "Video to analyse"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /registerVideo [post]
func (h *VideoHandler) RegisterVideo(c *gin.Context) {
	var req models.VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}
	logging.SetVideo(c, req.VideoURL)

	err := h.videos.Enqueue(c.Request.Context(), models.VideoJob{VideoURL: req.VideoURL})
	switch {
	case err == nil:
	case errors.Is(err, batch.ErrInvalidJob):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	default:
		logging.Error(c).Err(err).Msg("Failed to queue video")
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Msg("Video processing started")
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Video processing started."})
}
