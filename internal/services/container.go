package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/helpers"
	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/batch"
	"vigil-worker-go/internal/services/camera"
	"vigil-worker-go/internal/services/detection"
	"vigil-worker-go/internal/services/detection/remote"
	"vigil-worker-go/internal/services/messaging"
	"vigil-worker-go/internal/services/recorder"
	"vigil-worker-go/internal/services/repository"
	"vigil-worker-go/internal/services/storage"
	"vigil-worker-go/internal/services/streamcapture"
	"vigil-worker-go/internal/services/workerpool"
)

// Store is the union of the persistence boundaries.
type Store interface {
	models.CameraRoster
	models.VideoStatusStore
	models.NotificationStore
}

// ServiceContainer holds all services
type ServiceContainer struct {
	Config        *config.Config
	Pool          *workerpool.Pool
	Classifier    *remote.Client
	DetectionSvc  *detection.Service
	Store         Store
	Objects       models.ObjectStore
	Messaging     *messaging.Service
	Recorder      *recorder.Service
	CameraManager *camera.CameraManager
	Batch         *batch.Processor

	// ClipDir is set when clips are kept on the local filesystem.
	ClipDir string

	db       *pgxpool.Pool
	consumer *messaging.VideoJobConsumer
	cancel   context.CancelFunc
	logger   zerolog.Logger
}

// NewServiceContainer creates a new service container
func NewServiceContainer(ctx context.Context, cfg *config.Config) (*ServiceContainer, error) {
	sc := &ServiceContainer{
		Config: cfg,
		logger: logging.NewServiceLogger(cfg, "container"),
	}

	if err := sc.initStore(ctx); err != nil {
		return nil, err
	}
	if err := sc.initObjects(ctx); err != nil {
		sc.closeDB()
		return nil, err
	}

	var notifications models.NotificationStore = sc.Store
	if cfg.NatsEnabled {
		msg, err := messaging.NewService(cfg)
		if err != nil {
			// Notifications still reach the database without NATS.
			sc.logger.Warn().Err(err).Msg("NATS unavailable, notification events disabled")
		} else {
			sc.Messaging = msg
			notifications = messaging.NewNotifyingStore(sc.Store, msg, cfg.NotificationsSubject,
				logging.NewServiceLogger(cfg, "notification_events"))
		}
	}

	// Classifier is shared by every camera worker and the batch processor.
	sc.Classifier = remote.NewClient(cfg.ClassifierGRPCURL, cfg.ViolentClassIndex, helpers.JPEGEncoder(cfg.JPEGQuality))
	sc.DetectionSvc = detection.NewService(sc.Classifier, cfg.SequenceLength, cfg.ClassifierTimeout)

	sc.Pool = workerpool.New(cfg.PoolWorkers, cfg.PoolQueueSize)

	sc.Recorder = recorder.NewService(cfg, helpers.MP4Writer{}, sc.Objects, notifications)
	dispatcher := recorder.NewDispatcher(sc.Pool, sc.Recorder, cfg.ClipUploadTimeout,
		logging.NewServiceLogger(cfg, "clip_dispatcher"))

	capture := streamcapture.NewService(cfg)
	sc.CameraManager = camera.NewCameraManager(cfg, camera.Deps{
		Opener:        capture,
		Classifier:    sc.DetectionSvc,
		Notifications: notifications,
		Clips:         dispatcher,
	})

	sc.Batch = batch.NewProcessor(cfg, streamcapture.NewFileOpener(capture), sc.DetectionSvc, sc.Store, sc.Pool)

	if sc.Messaging != nil && cfg.VideoJobsSubject != "" {
		sc.consumer = messaging.NewVideoJobConsumer(sc.Messaging, sc.Batch,
			logging.NewServiceLogger(cfg, "video_jobs"))
	}

	return sc, nil
}

func (sc *ServiceContainer) initStore(ctx context.Context) error {
	if sc.Config.DatabaseURL == "" {
		sc.logger.Warn().Msg("DATABASE_URL not set, using in-memory store")
		sc.Store = repository.NewMemory()
		return nil
	}

	db, err := repository.NewPool(ctx, sc.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	sc.db = db
	sc.Store = repository.NewPostgres(db)
	return nil
}

func (sc *ServiceContainer) initObjects(ctx context.Context) error {
	cfg := sc.Config
	if cfg.S3Endpoint != "" || cfg.S3AccessKeyID != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create object store: %w", err)
		}
		sc.Objects = s3Store
		sc.logger.Info().Str("bucket", cfg.StorageBucket).Str("endpoint", cfg.S3Endpoint).Msg("Clips stored in object storage")
		return nil
	}

	fileStore, err := storage.NewFileStore(cfg.LocalStorageDir, fmt.Sprintf("http://%s/clips", cfg.SwaggerHost))
	if err != nil {
		return fmt.Errorf("failed to create local clip store: %w", err)
	}
	sc.Objects = fileStore
	sc.ClipDir = fileStore.BasePath()
	sc.logger.Info().Str("dir", sc.ClipDir).Msg("Clips stored on local filesystem")
	return nil
}

// Start resumes the camera roster and pending videos and joins the video job
// queue. Pending videos are queued in the background since the pool may be
// smaller than the backlog.
func (sc *ServiceContainer) Start(ctx context.Context) error {
	ctx, sc.cancel = context.WithCancel(ctx)

	if sc.consumer != nil {
		if err := sc.consumer.Start(sc.Config.VideoJobsSubject, sc.Config.VideoJobsQueue); err != nil {
			return fmt.Errorf("failed to subscribe to video jobs: %w", err)
		}
	}

	if !sc.Config.ResumeOnStart {
		return nil
	}

	records, err := sc.Store.ListCameras(ctx)
	if err != nil {
		sc.logger.Error().Err(err).Msg("Failed to load camera roster")
	} else if err := sc.CameraManager.StartAll(ctx, records); err != nil {
		sc.logger.Warn().Err(err).Msg("Some cameras failed to start")
	}

	go func() {
		if _, err := sc.Batch.ResumePending(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sc.logger.Error().Err(err).Msg("Failed to resume pending videos")
		}
	}()
	return nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.cancel != nil {
		sc.cancel()
	}
	if sc.consumer != nil {
		sc.consumer.Stop()
	}

	if sc.CameraManager != nil {
		if err := sc.CameraManager.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	// Drains queued clips and videos before the stores go away.
	if sc.Pool != nil {
		if err := sc.Pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Classifier != nil {
		if err := sc.Classifier.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	sc.closeDB()
	return errors.Join(errs...)
}

func (sc *ServiceContainer) closeDB() {
	if sc.db != nil {
		sc.db.Close()
		sc.db = nil
	}
}
