package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Backpressure policies for the per-camera pending frame queue.
const (
	BackpressureDrop  = "drop"
	BackpressureBlock = "block"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Detection windows
	FrameRate           int
	SequenceLength      int
	PreBufferSeconds    int
	PostBufferSeconds   int
	MaxClipSeconds      int
	ConfirmWindows      int // consecutive violent sequences required before latching
	PendingFrames       int // per-camera queue between reader and classifier
	Backpressure        string
	NotificationText    string
	NotifyTimeout       time.Duration
	FrameStaleThreshold time.Duration

	// Streaming Configuration
	MaxCameras               int
	OutputWidth              int
	OutputHeight             int
	RTSPTimeout              time.Duration
	CameraURLScheme          string
	MaxConsecutiveReadErrors int

	// Classifier (gRPC)
	ClassifierGRPCURL string
	ClassifierTimeout time.Duration
	ViolentClassIndex int
	JPEGQuality       int

	// Worker pool for video jobs and clip delivery
	PoolWorkers   int
	PoolQueueSize int

	// Batch videos and clip delivery
	DownloadTimeout   time.Duration
	ClipUploadTimeout time.Duration
	ClipTempDir       string

	// Persistence
	DatabaseURL string

	// Object storage
	StorageBucket    string
	StoragePublicURL string
	S3Endpoint       string
	S3Region         string
	S3AccessKeyID    string
	S3SecretKey      string
	LocalStorageDir  string

	// NATS (notification events and video job intake)
	NatsEnabled          bool
	NatsURL              string
	NatsConnectTimeout   time.Duration
	NatsReconnectWait    time.Duration
	NatsMaxReconnects    int
	NotificationsSubject string
	VideoJobsSubject     string
	VideoJobsQueue       string

	// Startup
	ResumeOnStart bool

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "vigil-1"),
		Port:        getEnvInt("PORT", 5000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Detection windows (defaults match the trained model's 16-frame input at 25 fps)
		FrameRate:           getEnvInt("FRAME_RATE", 25),
		SequenceLength:      getEnvInt("SEQUENCE_LENGTH", 16),
		PreBufferSeconds:    getEnvInt("PRE_BUFFER_SECONDS", 3),
		PostBufferSeconds:   getEnvInt("POST_BUFFER_SECONDS", 2),
		MaxClipSeconds:      getEnvInt("MAX_CLIP_SECONDS", 60),
		ConfirmWindows:      getEnvInt("CONFIRM_WINDOWS", 1),
		PendingFrames:       getEnvInt("PENDING_FRAMES", 32),
		Backpressure:        strings.ToLower(getEnv("BACKPRESSURE", BackpressureDrop)),
		NotificationText:    getEnv("NOTIFICATION_TEXT", "Violence detected!"),
		NotifyTimeout:       getEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		FrameStaleThreshold: getEnvDuration("FRAME_STALE_THRESHOLD", 10*time.Second),

		// Streaming
		MaxCameras:               getEnvInt("MAX_CAMERAS", 10),
		OutputWidth:              getEnvInt("OUTPUT_WIDTH", 640),
		OutputHeight:             getEnvInt("OUTPUT_HEIGHT", 360),
		RTSPTimeout:              getEnvDuration("RTSP_TIMEOUT", 10*time.Second),
		CameraURLScheme:          getEnv("CAMERA_URL_SCHEME", "http://"),
		MaxConsecutiveReadErrors: getEnvInt("MAX_CONSECUTIVE_READ_ERRORS", 10),

		// Classifier
		ClassifierGRPCURL: getEnv("CLASSIFIER_GRPC_URL", "localhost:50051"),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
		ViolentClassIndex: getEnvInt("VIOLENT_CLASS_INDEX", 0),
		JPEGQuality:       getEnvInt("JPEG_QUALITY", 90),

		// Pool shared by clip delivery and video jobs
		PoolWorkers:   getEnvInt("POOL_WORKERS", 3),
		PoolQueueSize: getEnvInt("POOL_QUEUE_SIZE", 64),

		DownloadTimeout:   getEnvDuration("DOWNLOAD_TIMEOUT", 2*time.Minute),
		ClipUploadTimeout: getEnvDuration("CLIP_UPLOAD_TIMEOUT", time.Minute),
		ClipTempDir:       getEnv("CLIP_TEMP_DIR", os.TempDir()),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		StorageBucket:    getEnv("STORAGE_BUCKET", "video-analysis"),
		StoragePublicURL: getEnv("STORAGE_PUBLIC_URL", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3Region:         getEnv("S3_REGION", "auto"),
		S3AccessKeyID:    getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:      getEnv("S3_SECRET_ACCESS_KEY", ""),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "./clips"),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:          getEnvBool("NATS_ENABLED", false),
		NatsURL:              getNatsURL(),
		NatsConnectTimeout:   getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:    getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:    getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NotificationsSubject: getEnv("NOTIFICATIONS_SUBJECT", "violence.notifications"),
		VideoJobsSubject:     getEnv("VIDEO_JOBS_SUBJECT", ""),
		VideoJobsQueue:       getEnv("VIDEO_JOBS_QUEUE", "vigil-workers"),

		ResumeOnStart: getEnvBool("RESUME_ON_START", true),

		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:5000"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate rejects settings the detection pipeline cannot run with.
func (c *Config) Validate() error {
	if c.FrameRate <= 0 {
		return fmt.Errorf("FRAME_RATE must be positive, got %d", c.FrameRate)
	}
	if c.SequenceLength <= 0 {
		return fmt.Errorf("SEQUENCE_LENGTH must be positive, got %d", c.SequenceLength)
	}
	if c.PreBufferSeconds < 0 || c.PostBufferSeconds < 0 {
		return fmt.Errorf("buffer windows must not be negative")
	}
	if c.MaxClipSeconds <= 0 {
		return fmt.Errorf("MAX_CLIP_SECONDS must be positive, got %d", c.MaxClipSeconds)
	}
	// The accumulator starts at up to PreBufferFrames + SequenceLength frames;
	// a cap at or below that truncates every episode on the sequence that opens it.
	if c.MaxClipFrames() <= c.PreBufferFrames()+c.SequenceLength {
		return fmt.Errorf("MAX_CLIP_SECONDS (%d frames) must exceed the pre-buffer plus one sequence (%d frames)",
			c.MaxClipFrames(), c.PreBufferFrames()+c.SequenceLength)
	}
	if c.ConfirmWindows < 1 {
		return fmt.Errorf("CONFIRM_WINDOWS must be at least 1, got %d", c.ConfirmWindows)
	}
	if c.PendingFrames < 1 {
		return fmt.Errorf("PENDING_FRAMES must be at least 1, got %d", c.PendingFrames)
	}
	if c.Backpressure != BackpressureDrop && c.Backpressure != BackpressureBlock {
		return fmt.Errorf("BACKPRESSURE must be %q or %q, got %q", BackpressureDrop, BackpressureBlock, c.Backpressure)
	}
	if c.PoolWorkers < 1 || c.PoolQueueSize < 1 {
		return fmt.Errorf("POOL_WORKERS and POOL_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// PreBufferFrames is the rolling buffer capacity.
func (c *Config) PreBufferFrames() int {
	return c.PreBufferSeconds * c.FrameRate
}

// CooldownFrames is the post-detection window, in frames.
func (c *Config) CooldownFrames() int {
	return c.PostBufferSeconds * c.FrameRate
}

// MaxClipFrames caps the capture accumulator of a single episode.
func (c *Config) MaxClipFrames() int {
	return c.MaxClipSeconds * c.FrameRate
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
