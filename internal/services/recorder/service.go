// Package recorder turns finalized episodes into uploaded clips.
package recorder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
)

const clipContentType = "video/mp4"

// ClipWriter encodes frames into a video file and returns how many frames it
// wrote.
type ClipWriter interface {
	WriteClip(path string, frames []*models.Frame, fps int) (int, error)
}

// ClipKey is the object key for a clip that ended at endedAt.
func ClipKey(userID, cameraID string, endedAt time.Time) string {
	return fmt.Sprintf("%s/violence_detected_clip/%s_%s.mp4", userID, cameraID, endedAt.Format("20060102_150405"))
}

// ClipMetadata is published once a clip is available.
type ClipMetadata struct {
	NotificationID string    `json:"notification_id"`
	CameraID       string    `json:"camera_id"`
	UserID         string    `json:"user_id"`
	VideoURL       string    `json:"video_url"`
	FrameCount     int       `json:"frame_count"`
	FileSize       int64     `json:"file_size"`
	StartTime      time.Time `json:"start_time"`
	Duration       float64   `json:"duration"`
	Truncated      bool      `json:"truncated"`
}

type Service struct {
	writer        ClipWriter
	store         models.ObjectStore
	notifications models.NotificationStore
	tempDir       string
	now           func() time.Time
	logger        zerolog.Logger
}

func NewService(cfg *config.Config, writer ClipWriter, store models.ObjectStore, notifications models.NotificationStore) *Service {
	return &Service{
		writer:        writer,
		store:         store,
		notifications: notifications,
		tempDir:       cfg.ClipTempDir,
		now:           time.Now,
		logger:        logging.NewServiceLogger(cfg, "recorder"),
	}
}

// Assemble writes the clip, uploads it and attaches its URL to the episode's
// notification. The temp file is always removed.
func (s *Service) Assemble(ctx context.Context, job models.ClipJob) (*ClipMetadata, error) {
	if len(job.Frames) == 0 {
		return nil, fmt.Errorf("clip for notification %s has no frames", job.NotificationID)
	}
	logger := logging.WithNotification(s.logger, job.CameraID, job.NotificationID)

	f, err := os.CreateTemp(s.tempDir, "clip-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("failed to create clip file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	written, err := s.writer.WriteClip(path, job.Frames, job.FrameRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode clip: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen clip: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat clip: %w", err)
	}

	endedAt := job.EndedAt
	if endedAt.IsZero() {
		endedAt = s.now()
	}
	key := ClipKey(job.UserID, job.CameraID, endedAt)

	url, err := s.store.Upload(ctx, key, file, clipContentType)
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues("clip_upload").Inc()
		return nil, fmt.Errorf("failed to upload clip %s: %w", key, err)
	}

	if err := s.notifications.AttachVideo(ctx, job.NotificationID, url); err != nil {
		metrics.PersistenceErrors.WithLabelValues("notification_attach").Inc()
		return nil, fmt.Errorf("failed to attach clip to notification: %w", err)
	}

	meta := &ClipMetadata{
		NotificationID: job.NotificationID,
		CameraID:       job.CameraID,
		UserID:         job.UserID,
		VideoURL:       url,
		FrameCount:     written,
		FileSize:       info.Size(),
		StartTime:      job.StartedAt,
		Duration:       float64(written) / float64(job.FrameRate),
		Truncated:      job.Truncated,
	}

	logger.Info().
		Str("key", key).
		Str("video_url", url).
		Int("frames", written).
		Dur("clip_duration", job.Duration()).
		Int64("size_bytes", info.Size()).
		Bool("truncated", job.Truncated).
		Msg("Clip uploaded")

	return meta, nil
}
