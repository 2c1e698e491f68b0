package camera

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/metrics"
	"vigil-worker-go/internal/models"
)

var (
	ErrAlreadyActive = errors.New("camera is already active")
	ErrNotActive     = errors.New("camera is not active")
	ErrCapacity      = errors.New("camera capacity reached")
	ErrShuttingDown  = errors.New("camera manager is shutting down")
	ErrInvalidSpec   = errors.New("invalid camera spec")
)

// CameraManager owns every camera worker. Nothing outside it touches a
// worker's state.
type CameraManager struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger

	workers map[string]*Worker
	mutex   sync.RWMutex
	closed  bool
}

func NewCameraManager(cfg *config.Config, deps Deps) *CameraManager {
	return &CameraManager{
		cfg:     cfg,
		deps:    deps,
		logger:  logging.NewServiceLogger(cfg, "camera_manager"),
		workers: make(map[string]*Worker),
	}
}

// Register starts watching a camera. The source is opened asynchronously; a
// camera whose source cannot be opened removes itself shortly after.
func (cm *CameraManager) Register(ctx context.Context, spec models.CameraSpec) error {
	if spec.CameraID == "" || spec.URL == "" {
		return fmt.Errorf("%w: camera id and url are required", ErrInvalidSpec)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	spec.URL = models.NormalizeCameraURL(spec.URL, cm.cfg.CameraURLScheme)

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.closed {
		return ErrShuttingDown
	}
	if _, exists := cm.workers[spec.CameraID]; exists {
		return ErrAlreadyActive
	}
	if cm.cfg.MaxCameras > 0 && len(cm.workers) >= cm.cfg.MaxCameras {
		return ErrCapacity
	}

	logger := logging.WithCamera(cm.logger, spec.CameraID)
	w := newWorker(spec, cm.cfg, cm.deps, logger, cm.remove)
	cm.workers[spec.CameraID] = w
	metrics.ActiveCameras.Inc()
	w.start()

	logger.Info().
		Str("user_id", spec.UserID).
		Str("url", spec.URL).
		Int("active_cameras", len(cm.workers)).
		Msg("Camera registered")
	return nil
}

// remove runs on the worker's own goroutine right before Done is closed.
func (cm *CameraManager) remove(w *Worker) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if current, ok := cm.workers[w.spec.CameraID]; ok && current == w {
		delete(cm.workers, w.spec.CameraID)
		metrics.ActiveCameras.Dec()
		metrics.DeleteCamera(w.spec.CameraID)
	}
}

// Stop cancels the camera's worker and waits until it has exited and closed
// its source. The record stays visible until then, so a concurrent Register
// for the same id fails with ErrAlreadyActive.
func (cm *CameraManager) Stop(ctx context.Context, cameraID string) error {
	cm.mutex.RLock()
	w, ok := cm.workers[cameraID]
	cm.mutex.RUnlock()
	if !ok {
		return ErrNotActive
	}

	w.stop()

	select {
	case <-w.Done():
		cm.logger.Info().Str("camera_id", cameraID).Msg("Camera stopped successfully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for camera %s to stop: %w", cameraID, ctx.Err())
	}
}

// StartAll registers every roster entry. A failing camera does not prevent
// the others from starting; all failures are returned joined.
func (cm *CameraManager) StartAll(ctx context.Context, records []models.CameraRecord) error {
	var errs []error
	started := 0

	for _, r := range records {
		if err := cm.Register(ctx, r.Spec()); err != nil {
			cm.logger.Warn().Err(err).Str("camera_id", r.ID).Msg("Failed to start camera")
			errs = append(errs, fmt.Errorf("camera %s: %w", r.ID, err))
			continue
		}
		started++
	}

	cm.logger.Info().
		Int("requested", len(records)).
		Int("started", started).
		Msg("Camera roster started")
	return errors.Join(errs...)
}

// List returns the health of every active camera ordered by id.
func (cm *CameraManager) List() []models.CameraResponse {
	cm.mutex.RLock()
	out := make([]models.CameraResponse, 0, len(cm.workers))
	for _, w := range cm.workers {
		out = append(out, w.Snapshot())
	}
	cm.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CameraID < out[j].CameraID })
	return out
}

func (cm *CameraManager) Get(cameraID string) (models.CameraResponse, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	w, ok := cm.workers[cameraID]
	if !ok {
		return models.CameraResponse{}, false
	}
	return w.Snapshot(), true
}

func (cm *CameraManager) ActiveCount() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.workers)
}

// Shutdown stops every camera and refuses new registrations.
func (cm *CameraManager) Shutdown(ctx context.Context) error {
	cm.mutex.Lock()
	cm.closed = true
	workers := make([]*Worker, 0, len(cm.workers))
	for _, w := range cm.workers {
		workers = append(workers, w)
	}
	cm.mutex.Unlock()

	cm.logger.Info().Int("cameras", len(workers)).Msg("Stopping all cameras")

	for _, w := range workers {
		w.stop()
	}
	for _, w := range workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return fmt.Errorf("camera shutdown incomplete: %w", ctx.Err())
		}
	}
	return nil
}
