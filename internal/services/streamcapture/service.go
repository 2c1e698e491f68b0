// Package streamcapture decodes camera streams and video files with OpenCV.
package streamcapture

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/logging"
	"vigil-worker-go/internal/models"
)

// OPENCV_FFMPEG_CAPTURE_OPTIONS is process-wide, so opens are serialized.
var ffmpegEnvMu sync.Mutex

// Service opens live camera sources.
type Service struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewService creates a new stream capture service
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:    cfg,
		logger: logging.NewServiceLogger(cfg, "streamcapture"),
	}
}

// Open starts an OpenCV VideoCapture for a camera.
func (s *Service) Open(ctx context.Context, cameraID, url string) (models.FrameSource, error) {
	logger := logging.WithCamera(s.logger, cameraID)
	logger.Info().Str("url", url).Msg("Opening camera stream")

	cap, err := s.openCapture(url, liveFFmpegOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrSourceUnavailable, url, err)
	}
	if err := ctx.Err(); err != nil {
		cap.Close()
		return nil, err
	}

	logger.Info().
		Float64("actual_fps", cap.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened successfully with actual properties")

	return &liveSource{
		svc:       s,
		cameraID:  cameraID,
		url:       url,
		cap:       cap,
		img:       gocv.NewMat(),
		logger:    logger,
		maxErrors: s.cfg.MaxConsecutiveReadErrors,
	}, nil
}

func (s *Service) openCapture(url string, options map[string]string) (*gocv.VideoCapture, error) {
	var (
		cap *gocv.VideoCapture
		err error
	)

	// Local device index ("0") vs network stream
	if idx, convErr := strconv.Atoi(url); convErr == nil {
		cap, err = gocv.OpenVideoCapture(idx)
	} else {
		ffmpegEnvMu.Lock()
		os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", encodeFFmpegOptions(options))
		cap, err = gocv.OpenVideoCaptureWithAPI(url, gocv.VideoCaptureFFmpeg)
		ffmpegEnvMu.Unlock()
	}
	if err != nil {
		return nil, err
	}

	// Buffer settings for low latency
	cap.Set(gocv.VideoCaptureBufferSize, 1)

	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video capture is not opened")
	}
	return cap, nil
}

type liveSource struct {
	svc       *Service
	cameraID  string
	url       string
	cap       *gocv.VideoCapture
	img       gocv.Mat
	logger    zerolog.Logger
	maxErrors int
	seq       int64
}

// Read blocks until the next frame is decoded. Transient read failures are
// retried with a growing delay; after maxErrors in a row the capture is reset
// once and, failing that, the source reports itself unavailable.
func (l *liveSource) Read(ctx context.Context) (*models.Frame, error) {
	consecutiveErrors := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if l.cap == nil {
			return nil, models.ErrSourceUnavailable
		}
		if l.cap.Read(&l.img) && !l.img.Empty() {
			l.seq++
			return l.svc.toFrame(l.img, l.cameraID, l.seq), nil
		}

		consecutiveErrors++
		l.logger.Warn().
			Int("consecutive_errors", consecutiveErrors).
			Msg("Failed to read frame from VideoCapture")

		if consecutiveErrors >= l.maxErrors {
			if !l.reset() {
				return nil, fmt.Errorf("%w: %d consecutive read errors", models.ErrSourceUnavailable, consecutiveErrors)
			}
			consecutiveErrors = 0
			continue
		}

		// Progressive delay based on error count
		delay := time.Duration(consecutiveErrors*50) * time.Millisecond
		if delay > 2*time.Second {
			delay = 2 * time.Second
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// reset reopens the capture with more conservative settings.
func (l *liveSource) reset() bool {
	l.logger.Info().Msg("Resetting VideoCapture due to consecutive errors")

	l.cap.Close()
	time.Sleep(500 * time.Millisecond)

	cap, err := l.svc.openCapture(l.url, recoveryFFmpegOptions)
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to reset VideoCapture")
		l.cap = nil
		return false
	}

	l.cap = cap
	l.logger.Info().Msg("VideoCapture reset successful")
	return true
}

func (l *liveSource) Close() error {
	l.img.Close()
	if l.cap == nil {
		return nil
	}
	err := l.cap.Close()
	l.cap = nil
	return err
}

// toFrame resizes img to the configured output size and copies the BGR bytes.
func (s *Service) toFrame(img gocv.Mat, cameraID string, seq int64) *models.Frame {
	width, height := s.cfg.OutputWidth, s.cfg.OutputHeight

	var data []byte
	if width > 0 && height > 0 && (img.Cols() != width || img.Rows() != height) {
		resized := gocv.NewMat()
		gocv.Resize(img, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		data = resized.ToBytes()
		resized.Close()
	} else {
		width, height = img.Cols(), img.Rows()
		data = img.ToBytes()
	}

	return &models.Frame{
		CameraID:   cameraID,
		Seq:        seq,
		Data:       data,
		Width:      width,
		Height:     height,
		CapturedAt: time.Now(),
	}
}

// FFmpeg options optimized for low latency streaming
var liveFFmpegOptions = map[string]string{
	"rtsp_transport":        "tcp",
	"buffer_size":           "2097152",
	"max_delay":             "500000",
	"stimeout":              "5000000",
	"rw_timeout":            "5000000",
	"flags":                 "low_delay",
	"fflags":                "nobuffer+flush_packets",
	"drop_pkts_on_overflow": "1",
	"analyzeduration":       "500000",
	"probesize":             "2000000",
	"allowed_media_types":   "video",
	"reconnect":             "1",
	"reconnect_streamed":    "1",
	"reconnect_delay_max":   "2",
}

var recoveryFFmpegOptions = map[string]string{
	"rtsp_transport":      "tcp",
	"buffer_size":         "5000000",
	"probesize":           "5000000",
	"stimeout":            "5000000",
	"fflags":              "nobuffer",
	"max_delay":           "3000000",
	"err_detect":          "careful",
	"reconnect":           "1",
	"reconnect_streamed":  "1",
	"reconnect_delay_max": "1",
}

// encodeFFmpegOptions builds the "key;value|key;value" string OpenCV expects.
func encodeFFmpegOptions(opts map[string]string) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+";"+opts[k])
	}
	return strings.Join(parts, "|")
}
