package recorder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/workerpool"
)

type fakeWriter struct {
	gotSeqs []int64
	gotFPS  int
	err     error
}

func (w *fakeWriter) WriteClip(path string, frames []*models.Frame, fps int) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.gotFPS = fps
	for _, f := range frames {
		w.gotSeqs = append(w.gotSeqs, f.Seq)
	}
	return len(frames), os.WriteFile(path, []byte("mp4-bytes"), 0o644)
}

type fakeStore struct {
	mu   sync.Mutex
	keys []string
	body []byte
	err  error
}

func (s *fakeStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.body = data
	return "https://cdn.example/" + key, nil
}

type fakeNotifications struct {
	mu       sync.Mutex
	attached map[string]string
}

func (n *fakeNotifications) Create(ctx context.Context, notification models.Notification) error {
	return nil
}

func (n *fakeNotifications) AttachVideo(ctx context.Context, id, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attached == nil {
		n.attached = make(map[string]string)
	}
	n.attached[id] = url
	return nil
}

func clipJob(n int) models.ClipJob {
	frames := make([]*models.Frame, n)
	for i := range frames {
		frames[i] = &models.Frame{Seq: int64(i + 1)}
	}
	return models.ClipJob{
		CameraID:       "cam-3",
		UserID:         "user-9",
		NotificationID: "notif-1",
		Frames:         frames,
		FrameRate:      25,
		StartedAt:      time.Date(2024, 5, 1, 13, 4, 58, 0, time.UTC),
		EndedAt:        time.Date(2024, 5, 1, 13, 5, 9, 0, time.UTC),
	}
}

func newTestService(t *testing.T, writer ClipWriter, store models.ObjectStore, notes models.NotificationStore) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{WorkerID: "test", ClipTempDir: dir}
	return NewService(cfg, writer, store, notes), dir
}

func TestClipKey(t *testing.T) {
	got := ClipKey("user-9", "cam-3", time.Date(2024, 5, 1, 13, 5, 9, 0, time.UTC))
	want := "user-9/violence_detected_clip/cam-3_20240501_130509.mp4"
	if got != want {
		t.Fatalf("ClipKey = %q, want %q", got, want)
	}
}

func TestAssembleUploadsAndAttaches(t *testing.T) {
	writer := &fakeWriter{}
	store := &fakeStore{}
	notes := &fakeNotifications{}
	svc, dir := newTestService(t, writer, store, notes)

	meta, err := svc.Assemble(context.Background(), clipJob(5))
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	if len(writer.gotSeqs) != 5 || writer.gotSeqs[0] != 1 || writer.gotSeqs[4] != 5 || writer.gotFPS != 25 {
		t.Fatalf("writer got seqs %v at %d fps", writer.gotSeqs, writer.gotFPS)
	}
	wantKey := "user-9/violence_detected_clip/cam-3_20240501_130509.mp4"
	if len(store.keys) != 1 || store.keys[0] != wantKey {
		t.Fatalf("unexpected upload keys %v", store.keys)
	}
	if string(store.body) != "mp4-bytes" {
		t.Fatalf("uploaded body %q", store.body)
	}
	if notes.attached["notif-1"] != "https://cdn.example/"+wantKey {
		t.Fatalf("notification not updated: %v", notes.attached)
	}
	if meta.FrameCount != 5 || meta.FileSize != int64(len("mp4-bytes")) {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "clip-*.mp4"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestAssembleUploadFailure(t *testing.T) {
	notes := &fakeNotifications{}
	svc, dir := newTestService(t, &fakeWriter{}, &fakeStore{err: errors.New("bucket gone")}, notes)

	if _, err := svc.Assemble(context.Background(), clipJob(3)); err == nil {
		t.Fatal("expected upload failure")
	}
	if len(notes.attached) != 0 {
		t.Fatal("notification must not be updated when the upload fails")
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "clip-*.mp4"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestAssembleEncodeFailure(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, &fakeWriter{err: errors.New("codec missing")}, store, &fakeNotifications{})

	if _, err := svc.Assemble(context.Background(), clipJob(3)); err == nil {
		t.Fatal("expected encode failure")
	}
	if len(store.keys) != 0 {
		t.Fatal("nothing should be uploaded when encoding fails")
	}
}

func TestAssembleEmptyClip(t *testing.T) {
	svc, _ := newTestService(t, &fakeWriter{}, &fakeStore{}, &fakeNotifications{})

	if _, err := svc.Assemble(context.Background(), clipJob(0)); err == nil {
		t.Fatal("expected an error for an empty clip")
	}
}

type recordingAssembler struct {
	mu   sync.Mutex
	jobs []models.ClipJob
	done chan struct{}
}

func (a *recordingAssembler) Assemble(ctx context.Context, job models.ClipJob) (*ClipMetadata, error) {
	a.mu.Lock()
	a.jobs = append(a.jobs, job)
	a.mu.Unlock()
	close(a.done)
	return &ClipMetadata{VideoURL: "u"}, nil
}

func TestDispatcherRunsOnPool(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Shutdown(context.Background())

	asm := &recordingAssembler{done: make(chan struct{})}
	d := NewDispatcher(pool, asm, time.Second, zerolog.Nop())

	if err := d.Dispatch(clipJob(2)); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case <-asm.done:
	case <-time.After(time.Second):
		t.Fatal("clip was never assembled")
	}
	if asm.jobs[0].NotificationID != "notif-1" {
		t.Fatalf("unexpected job %+v", asm.jobs[0])
	}
}

type fullPool struct{}

func (fullPool) TrySubmit(name string, task workerpool.Task) error { return workerpool.ErrQueueFull }

func TestDispatcherReportsFullPool(t *testing.T) {
	d := NewDispatcher(fullPool{}, &recordingAssembler{}, time.Second, zerolog.Nop())

	if err := d.Dispatch(clipJob(2)); !errors.Is(err, workerpool.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
