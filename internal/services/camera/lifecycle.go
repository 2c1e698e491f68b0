package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/buffer"
	"vigil-worker-go/internal/services/episode"
)

// CameraState represents the atomic state of a camera worker
type CameraState int32

const (
	StateStopped CameraState = iota
	StateRunning
	StateStopping
)

func (s CameraState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

func (s CameraState) status() models.CameraStatus {
	switch s {
	case StateRunning:
		return models.CameraStatusRunning
	case StateStopping:
		return models.CameraStatusStopping
	default:
		return models.CameraStatusStopped
	}
}

// ClipSink takes ownership of finalized episodes.
type ClipSink interface {
	Dispatch(job models.ClipJob) error
}

// Deps are the collaborators shared by every camera worker.
type Deps struct {
	Opener        models.SourceOpener
	Classifier    models.Classifier
	Notifications models.NotificationStore
	Clips         ClipSink
}

// Worker watches a single camera. The reader goroutine owns the source and
// feeds a bounded pending queue; the processing goroutine owns the rolling
// buffer and the detection machine.
type Worker struct {
	spec   models.CameraSpec
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger

	state     int32
	startedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	onExit func(*Worker)

	pending chan *models.Frame

	// Owned by the processing goroutine
	buffer  *buffer.Rolling
	machine *episode.Machine
	seqBuf  models.FrameSequence

	// Health
	framesRead     atomic.Int64
	framesDropped  atomic.Int64
	sequences      atomic.Int64
	classifyErrors atomic.Int64
	episodes       atomic.Int64
	lastFrameNanos atomic.Int64
	detection      atomic.Int32
	lastErr        atomic.Value // string
}

func newWorker(spec models.CameraSpec, cfg *config.Config, deps Deps, logger zerolog.Logger, onExit func(*Worker)) *Worker {
	w := &Worker{
		spec:    spec,
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		done:    make(chan struct{}),
		onExit:  onExit,
		pending: make(chan *models.Frame, cfg.PendingFrames),
		buffer:  buffer.NewRolling(cfg.PreBufferFrames()),
		machine: episode.New(episode.Config{
			SequenceLength: cfg.SequenceLength,
			CooldownFrames: cfg.CooldownFrames(),
			MaxClipFrames:  cfg.MaxClipFrames(),
			ConfirmWindows: cfg.ConfirmWindows,
		}, nil),
		seqBuf: make(models.FrameSequence, 0, cfg.SequenceLength),
	}
	w.lastErr.Store("")
	return w
}

func (w *Worker) setState(state CameraState) {
	atomic.StoreInt32(&w.state, int32(state))
}

func (w *Worker) getState() CameraState {
	return CameraState(atomic.LoadInt32(&w.state))
}

func (w *Worker) setErr(err error) {
	if err != nil {
		w.lastErr.Store(err.Error())
	}
}

// Done is closed after both goroutines have exited and the source is closed.
func (w *Worker) Done() <-chan struct{} { return w.done }

// start launches the worker. Its lifetime is independent of the caller's
// context; only stop ends it.
func (w *Worker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.startedAt = time.Now()
	w.setState(StateRunning)

	go w.run(ctx)
}

// stop requests shutdown without waiting.
func (w *Worker) stop() {
	if atomic.CompareAndSwapInt32(&w.state, int32(StateRunning), int32(StateStopping)) {
		w.logger.Info().Msg("Stopping camera")
	}
	w.cancel()
}

func (w *Worker) run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		w.processLoop(ctx)
	}()
	wg.Wait()

	// An episode still open here is dropped, never flushed.
	if w.machine.State().Capturing() {
		w.logger.Info().
			Str("notification_id", w.machine.NotificationID()).
			Int("frames", w.machine.Captured()).
			Msg("Discarding in-progress clip")
	}
	w.machine.Reset()
	w.buffer.Clear()
	w.detection.Store(int32(episode.StateIdle))
	w.setState(StateStopped)

	if w.onExit != nil {
		w.onExit(w)
	}
	close(w.done)

	w.logger.Info().
		Int64("frames_read", w.framesRead.Load()).
		Int64("frames_dropped", w.framesDropped.Load()).
		Int64("episodes", w.episodes.Load()).
		Msg("Camera worker exited")
}

// readLoop owns the frame source for its whole lifetime.
func (w *Worker) readLoop(ctx context.Context) {
	defer close(w.pending)
	defer func() {
		if r := recover(); r != nil {
			w.setErr(fmt.Errorf("reader panic: %v", r))
			w.logger.Error().Interface("panic", r).Msg("Camera reader panic recovered")
		}
	}()

	src, err := w.deps.Opener.Open(ctx, w.spec.CameraID, w.spec.URL)
	if err != nil {
		if ctx.Err() == nil {
			w.setErr(err)
			w.logger.Error().Err(err).Str("url", w.spec.URL).Msg("Failed to open camera source")
		}
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to close camera source")
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				w.setErr(fmt.Errorf("%w: stream ended", models.ErrSourceUnavailable))
				w.logger.Warn().Msg("Camera stream ended")
				return
			}
			w.setErr(err)
			w.logger.Error().Err(err).Msg("Camera source failed")
			return
		}

		w.framesRead.Add(1)
		w.lastFrameNanos.Store(time.Now().UnixNano())
		metrics.FramesRead.WithLabelValues(w.spec.CameraID).Inc()

		w.enqueue(ctx, frame)
	}
}

// enqueue hands a frame to the processing goroutine according to the
// backpressure policy.
func (w *Worker) enqueue(ctx context.Context, frame *models.Frame) {
	if w.cfg.Backpressure == config.BackpressureBlock {
		select {
		case w.pending <- frame:
		case <-ctx.Done():
		}
		return
	}

	select {
	case w.pending <- frame:
		return
	default:
	}

	// Queue is full - drop the oldest frame and send current
	select {
	case <-w.pending:
		w.dropped()
	default:
	}

	select {
	case w.pending <- frame:
	default:
		w.dropped()
	}
}

func (w *Worker) dropped() {
	w.framesDropped.Add(1)
	metrics.FramesDropped.WithLabelValues(w.spec.CameraID).Inc()
}

// processLoop groups frames into sequences in arrival order.
func (w *Worker) processLoop(ctx context.Context) {
	// Either goroutine ending takes the other one down.
	defer w.cancel()
	defer func() {
		if r := recover(); r != nil {
			w.setErr(fmt.Errorf("processor panic: %v", r))
			w.logger.Error().Interface("panic", r).Msg("Camera processor panic recovered")
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case frame, ok := <-w.pending:
			if !ok {
				return
			}

			w.seqBuf = append(w.seqBuf, frame)
			if len(w.seqBuf) < w.cfg.SequenceLength {
				continue
			}

			seq := w.seqBuf
			w.seqBuf = make(models.FrameSequence, 0, w.cfg.SequenceLength)
			w.handleSequence(ctx, seq)
		}
	}
}

func (w *Worker) handleSequence(ctx context.Context, seq models.FrameSequence) {
	label, err := w.deps.Classifier.Classify(ctx, seq)
	if ctx.Err() != nil {
		// stopped while classifying; the label no longer matters
		return
	}

	w.sequences.Add(1)
	if err != nil {
		w.classifyErrors.Add(1)
		w.setErr(err)
		w.logger.Warn().Err(err).Int64("first_seq", seq.First().Seq).Msg("Classification failed, treating sequence as non-violent")
		label = models.LabelNonViolent
	}

	d := w.machine.Observe(label, seq, w.buffer)
	w.buffer.PushAll(seq)
	w.detection.Store(int32(d.To))

	if d.From != d.To {
		w.logger.Debug().
			Str("from", d.From.String()).
			Str("to", d.To.String()).
			Msg("Detection state changed")
	}

	if d.Notify {
		w.episodes.Add(1)
		metrics.Episodes.WithLabelValues(w.spec.CameraID).Inc()
		w.notify(ctx, d.NotificationID)
	}
	if d.Clip != nil {
		w.dispatchClip(d.Clip)
	}
}

func (w *Worker) notify(ctx context.Context, notificationID string) {
	n := models.Notification{
		ID:        notificationID,
		CameraID:  w.spec.CameraID,
		UserID:    w.spec.UserID,
		Text:      w.cfg.NotificationText,
		CreatedAt: time.Now().UTC(),
	}

	// A decided notification is delivered even if the camera is stopping.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.NotifyTimeout)
	defer cancel()

	if err := w.deps.Notifications.Create(nctx, n); err != nil {
		metrics.PersistenceErrors.WithLabelValues("notification_create").Inc()
		w.setErr(err)
		w.logger.Error().Err(err).Str("notification_id", notificationID).Msg("Failed to create notification")
		return
	}

	w.logger.Info().Str("notification_id", notificationID).Msg("Violence detected, notification created")
}

func (w *Worker) dispatchClip(clip *episode.Clip) {
	frames := models.FrameSequence(clip.Frames)
	job := models.ClipJob{
		CameraID:       w.spec.CameraID,
		UserID:         w.spec.UserID,
		NotificationID: clip.NotificationID,
		Frames:         clip.Frames,
		FrameRate:      w.cfg.FrameRate,
		Truncated:      clip.Truncated,
	}
	if first := frames.First(); first != nil {
		job.StartedAt = first.CapturedAt
		job.EndedAt = frames.Last().CapturedAt
	}

	if err := w.deps.Clips.Dispatch(job); err != nil {
		metrics.ClipsDelivered.WithLabelValues("rejected").Inc()
		w.setErr(err)
		w.logger.Error().
			Err(err).
			Str("notification_id", clip.NotificationID).
			Int("frames", len(clip.Frames)).
			Msg("Failed to dispatch clip")
		return
	}

	w.logger.Info().
		Str("notification_id", clip.NotificationID).
		Int("frames", len(clip.Frames)).
		Bool("truncated", clip.Truncated).
		Msg("Episode finalized, clip dispatched")
}

// Snapshot reports the worker's health.
func (w *Worker) Snapshot() models.CameraResponse {
	resp := models.CameraResponse{
		CameraID:       w.spec.CameraID,
		UserID:         w.spec.UserID,
		URL:            w.spec.URL,
		Status:         w.getState().status(),
		DetectionState: episode.State(w.detection.Load()).String(),
		StartedAt:      w.startedAt,
		FramesRead:     w.framesRead.Load(),
		FramesDropped:  w.framesDropped.Load(),
		Sequences:      w.sequences.Load(),
		ClassifyErrors: w.classifyErrors.Load(),
		Episodes:       w.episodes.Load(),
		LastError:      w.lastErr.Load().(string),
	}

	reference := w.startedAt
	if nanos := w.lastFrameNanos.Load(); nanos > 0 {
		resp.LastFrameTime = time.Unix(0, nanos)
		reference = resp.LastFrameTime
	}
	if w.cfg.FrameStaleThreshold > 0 && time.Since(reference) > w.cfg.FrameStaleThreshold {
		resp.Stale = true
	}
	return resp
}
