package messaging

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"vigil-worker-go/internal/models"
)

// Enqueuer accepts video jobs; satisfied by *batch.Processor.
type Enqueuer interface {
	Enqueue(ctx context.Context, job models.VideoJob) error
}

// VideoJobConsumer feeds video jobs received on a NATS queue group into the
// batch processor. Payloads are either a JSON VideoJob or a bare URL.
type VideoJobConsumer struct {
	sub      QueueSubscriber
	enqueuer Enqueuer
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	subscr *nats.Subscription
}

func NewVideoJobConsumer(sub QueueSubscriber, enqueuer Enqueuer, logger zerolog.Logger) *VideoJobConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &VideoJobConsumer{
		sub:      sub,
		enqueuer: enqueuer,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start joins queue on subject.
func (c *VideoJobConsumer) Start(subject, queue string) error {
	s, err := c.sub.QueueSubscribe(subject, queue, c.handle)
	if err != nil {
		return err
	}
	c.subscr = s
	c.logger.Info().Str("subject", subject).Str("queue", queue).Msg("Listening for video jobs")
	return nil
}

func (c *VideoJobConsumer) handle(data []byte) {
	job, ok := decodeVideoJob(data)
	if !ok {
		c.logger.Warn().Int("bytes", len(data)).Msg("Ignoring malformed video job")
		return
	}
	// Blocks the subscription while the pool is full.
	if err := c.enqueuer.Enqueue(c.ctx, job); err != nil {
		c.logger.Error().Err(err).Str("video_url", job.VideoURL).Msg("Failed to enqueue video job")
	}
}

// Stop unsubscribes and releases any handler waiting for pool capacity.
func (c *VideoJobConsumer) Stop() {
	c.cancel()
	if c.subscr != nil {
		if err := c.subscr.Unsubscribe(); err != nil {
			c.logger.Debug().Err(err).Msg("Unsubscribe failed")
		}
	}
}

func decodeVideoJob(data []byte) (models.VideoJob, bool) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return models.VideoJob{}, false
	}
	if strings.HasPrefix(raw, "{") {
		var job models.VideoJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil || strings.TrimSpace(job.VideoURL) == "" {
			return models.VideoJob{}, false
		}
		return job, true
	}
	return models.VideoJob{VideoURL: raw}, true
}
