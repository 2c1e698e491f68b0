package streamcapture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"vigil-worker-go/internal/models"
)

// FileOpener decodes pre-recorded videos. Remote videos are downloaded to a
// temporary file first since OpenCV needs a seekable input for most
// containers.
type FileOpener struct {
	svc     *Service
	client  *http.Client
	tempDir string
}

func NewFileOpener(svc *Service) *FileOpener {
	return &FileOpener{
		svc:     svc,
		client:  &http.Client{Timeout: svc.cfg.DownloadTimeout},
		tempDir: svc.cfg.ClipTempDir,
	}
}

// Open returns a finite FrameSource; Read yields io.EOF after the last frame.
func (o *FileOpener) Open(ctx context.Context, videoURL string) (models.FrameSource, error) {
	path, cleanup, err := o.fetch(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSourceUnavailable, err)
	}

	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrSourceUnavailable, videoURL, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		cleanup()
		return nil, fmt.Errorf("%w: cannot decode %s", models.ErrSourceUnavailable, videoURL)
	}

	return &fileSource{
		svc:     o.svc,
		id:      videoURL,
		cap:     cap,
		img:     gocv.NewMat(),
		cleanup: cleanup,
	}, nil
}

func (o *FileOpener) fetch(ctx context.Context, videoURL string) (string, func(), error) {
	u, err := url.Parse(videoURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid video url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		// local path, nothing to clean up
		return videoURL, func() {}, nil
	}

	path, err := download(ctx, o.client, videoURL, o.tempDir)
	if err != nil {
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}

// download copies the body at rawURL into a temp file and returns its path.
func download(ctx context.Context, client *http.Client, rawURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	ext := filepath.Ext(req.URL.Path)
	if ext == "" {
		ext = ".mp4"
	}
	f, err := os.CreateTemp(dir, "video-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("download interrupted: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

type fileSource struct {
	svc     *Service
	id      string
	cap     *gocv.VideoCapture
	img     gocv.Mat
	cleanup func()
	seq     int64
}

func (f *fileSource) Read(ctx context.Context) (*models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !f.cap.Read(&f.img) || f.img.Empty() {
		return nil, io.EOF
	}
	f.seq++
	return f.svc.toFrame(f.img, f.id, f.seq), nil
}

func (f *fileSource) Close() error {
	f.img.Close()
	err := f.cap.Close()
	f.cleanup()
	return err
}
