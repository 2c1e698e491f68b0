// Package batch classifies whole pre-recorded videos.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/workerpool"
)

var ErrInvalidJob = errors.New("invalid video job")

// VideoOpener decodes a pre-recorded video into frames.
type VideoOpener interface {
	Open(ctx context.Context, videoURL string) (models.FrameSource, error)
}

// Submitter is satisfied by *workerpool.Pool.
type Submitter interface {
	Submit(ctx context.Context, name string, task workerpool.Task) error
}

// Outcome of one analysed video.
type Outcome struct {
	Label   models.Label
	Groups  int
	Frames  int
	Violent int
	Elapsed time.Duration
}

type Processor struct {
	opener         VideoOpener
	classifier     models.Classifier
	store          models.VideoStatusStore
	pool           Submitter
	sequenceLength int
	statusTimeout  time.Duration
	logger         zerolog.Logger
}

func NewProcessor(cfg *config.Config, opener VideoOpener, classifier models.Classifier, store models.VideoStatusStore, pool Submitter) *Processor {
	return &Processor{
		opener:         opener,
		classifier:     classifier,
		store:          store,
		pool:           pool,
		sequenceLength: cfg.SequenceLength,
		statusTimeout:  cfg.NotifyTimeout,
		logger:         logging.NewServiceLogger(cfg, "batch"),
	}
}

// Enqueue schedules a video for analysis, waiting for pool capacity until
// ctx is done.
func (p *Processor) Enqueue(ctx context.Context, job models.VideoJob) error {
	job.VideoURL = strings.TrimSpace(job.VideoURL)
	if job.VideoURL == "" {
		return fmt.Errorf("%w: video url is required", ErrInvalidJob)
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	err := p.pool.Submit(ctx, "video:"+job.VideoURL, func(ctx context.Context) {
		p.Process(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("failed to queue video %s: %w", job.VideoURL, err)
	}

	p.logger.Info().Str("video_url", job.VideoURL).Msg("New video queued for processing")
	return nil
}

// ResumePending queues every video still marked pending and returns how many
// were queued.
func (p *Processor) ResumePending(ctx context.Context) (int, error) {
	urls, err := p.store.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending videos: %w", err)
	}

	var errs []error
	queued := 0
	for _, url := range urls {
		if err := p.Enqueue(ctx, models.VideoJob{VideoURL: url}); err != nil {
			errs = append(errs, err)
			continue
		}
		queued++
	}

	p.logger.Info().Int("pending", len(urls)).Int("queued", queued).Msg("Pending videos resumed")
	return queued, errors.Join(errs...)
}

// Process analyses one video and records its terminal status exactly once.
// A job cut short by shutdown records nothing and stays pending, so the next
// start resumes it.
func (p *Processor) Process(ctx context.Context, job models.VideoJob) {
	logger := logging.WithVideo(p.logger, job.VideoURL)

	outcome, err := p.Analyze(ctx, job.VideoURL)
	if err != nil && ctx.Err() != nil {
		metrics.VideoJobs.WithLabelValues("interrupted").Inc()
		logger.Warn().Err(err).Msg("Video processing interrupted, left pending")
		return
	}

	status, result := models.VideoStatusCompleted, models.VideoResultNo
	if err != nil {
		status, result = models.VideoStatusFailed, ""
		logger.Error().Err(err).Msg("Video processing failed")
	} else if outcome.Label == models.LabelViolent {
		result = models.VideoResultYes
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.statusTimeout)
	defer cancel()
	if err := p.store.SetResult(sctx, job.VideoURL, status, result); err != nil {
		metrics.PersistenceErrors.WithLabelValues("video_status").Inc()
		logger.Error().Err(err).Str("status", status).Msg("Failed to record video result")
		return
	}
	metrics.VideoJobs.WithLabelValues(status).Inc()

	if err == nil {
		logger.Info().
			Str("result", result).
			Int("groups", outcome.Groups).
			Int("violent_groups", outcome.Violent).
			Dur("elapsed", outcome.Elapsed).
			Msg("Video processing completed")
	}
}

// Analyze classifies every full, non-overlapping group of frames. A trailing
// partial group is ignored. Any violent group makes the video violent.
func (p *Processor) Analyze(ctx context.Context, videoURL string) (Outcome, error) {
	start := time.Now()
	out := Outcome{Label: models.LabelNonViolent}

	src, err := p.opener.Open(ctx, videoURL)
	if err != nil {
		return out, err
	}
	defer src.Close()

	group := make(models.FrameSequence, 0, p.sequenceLength)
	for {
		frame, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to decode video: %w", err)
		}
		out.Frames++

		group = append(group, frame)
		if len(group) < p.sequenceLength {
			continue
		}

		label, err := p.classifier.Classify(ctx, group)
		if err != nil {
			return out, err
		}
		out.Groups++
		if label == models.LabelViolent {
			out.Violent++
			out.Label = models.LabelViolent
		}
		group = make(models.FrameSequence, 0, p.sequenceLength)
	}

	out.Elapsed = time.Since(start)
	return out, nil
}
