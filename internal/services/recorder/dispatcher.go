package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/workerpool"
)

// Assembler is satisfied by *Service.
type Assembler interface {
	Assemble(ctx context.Context, job models.ClipJob) (*ClipMetadata, error)
}

// Submitter is satisfied by *workerpool.Pool.
type Submitter interface {
	TrySubmit(name string, task workerpool.Task) error
}

// Dispatcher moves clip jobs off the camera goroutines onto the shared pool.
// It never blocks: a full pool rejects the clip.
type Dispatcher struct {
	pool      Submitter
	assembler Assembler
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewDispatcher(pool Submitter, assembler Assembler, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		assembler: assembler,
		timeout:   timeout,
		logger:    logger,
	}
}

func (d *Dispatcher) Dispatch(job models.ClipJob) error {
	err := d.pool.TrySubmit("clip:"+job.NotificationID, func(ctx context.Context) {
		d.deliver(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("clip for notification %s not queued: %w", job.NotificationID, err)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, job models.ClipJob) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	logger := logging.WithNotification(d.logger, job.CameraID, job.NotificationID)
	start := time.Now()
	meta, err := d.assembler.Assemble(ctx, job)
	if err != nil {
		metrics.ClipsDelivered.WithLabelValues("failed").Inc()
		logger.Error().
			Err(err).
			Int("frames", len(job.Frames)).
			Msg("Clip delivery failed")
		return
	}

	metrics.ClipsDelivered.WithLabelValues("uploaded").Inc()
	logger.Debug().
		Str("video_url", meta.VideoURL).
		Dur("elapsed", time.Since(start)).
		Msg("Clip delivered")
}
