package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

func WithCamera(base zerolog.Logger, cameraID string) zerolog.Logger {
	return base.With().Str("camera_id", cameraID).Logger()
}

// WithVideo tags a logger with the video being analysed.
func WithVideo(base zerolog.Logger, videoURL string) zerolog.Logger {
	return base.With().Str("video_url", videoURL).Logger()
}

// WithNotification tags a logger with an episode's notification.
func WithNotification(base zerolog.Logger, cameraID, notificationID string) zerolog.Logger {
	return base.With().Str("camera_id", cameraID).Str("notification_id", notificationID).Logger()
}
