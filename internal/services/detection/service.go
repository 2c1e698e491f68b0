// Package detection validates frame sequences and hands them to the
// classifier backend.
package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
)

var (
	ErrSequenceLength = errors.New("frame sequence has the wrong length")
	ErrClassification = errors.New("classification failed")
)

// Backend performs the actual inference.
type Backend interface {
	Classify(ctx context.Context, seq models.FrameSequence) (models.Classification, error)
}

// Service is shared by every camera worker and the batch processor.
type Service struct {
	backend        Backend
	sequenceLength int
	timeout        time.Duration
	logger         zerolog.Logger
}

func NewService(backend Backend, sequenceLength int, timeout time.Duration) *Service {
	return &Service{
		backend:        backend,
		sequenceLength: sequenceLength,
		timeout:        timeout,
		logger:         log.With().Str("service", "detection").Logger(),
	}
}

// Classify returns the label for seq. Sequences are never padded or truncated.
func (s *Service) Classify(ctx context.Context, seq models.FrameSequence) (models.Label, error) {
	if len(seq) != s.sequenceLength {
		return models.LabelNonViolent, fmt.Errorf("%w: got %d frames, want %d", ErrSequenceLength, len(seq), s.sequenceLength)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.backend.Classify(ctx, seq)
	latency := time.Since(start)

	if err != nil {
		metrics.ClassifyDuration.WithLabelValues("error").Observe(latency.Seconds())
		metrics.ClassifyErrors.Inc()
		return models.LabelNonViolent, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	metrics.ClassifyDuration.WithLabelValues("ok").Observe(latency.Seconds())
	metrics.Classifications.WithLabelValues(result.Label.String()).Inc()

	s.logger.Debug().
		Str("camera_id", seq.First().CameraID).
		Int64("first_seq", seq.First().Seq).
		Str("label", result.Label.String()).
		Float64("score", result.Score).
		Dur("latency", latency).
		Msg("Sequence classified")

	return result.Label, nil
}
