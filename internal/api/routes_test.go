package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/batch"
	"vigil-worker-go/internal/services/camera"
	"vigil-worker-go/internal/services/workerpool"
)

type fakeCameras struct {
	mu       sync.Mutex
	active   map[string]models.CameraSpec
	capacity int
}

func newFakeCameras(capacity int) *fakeCameras {
	return &fakeCameras{active: make(map[string]models.CameraSpec), capacity: capacity}
}

func (f *fakeCameras) Register(ctx context.Context, spec models.CameraSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.active[spec.CameraID]; ok {
		return camera.ErrAlreadyActive
	}
	if len(f.active) >= f.capacity {
		return camera.ErrCapacity
	}
	f.active[spec.CameraID] = spec
	return nil
}

func (f *fakeCameras) Stop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.active[id]; !ok {
		return camera.ErrNotActive
	}
	delete(f.active, id)
	return nil
}

func (f *fakeCameras) List() []models.CameraResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.CameraResponse, 0, len(f.active))
	for id, spec := range f.active {
		out = append(out, models.CameraResponse{CameraID: id, UserID: spec.UserID, URL: spec.URL})
	}
	return out
}

func (f *fakeCameras) Get(id string) (models.CameraResponse, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec, ok := f.active[id]
	if !ok {
		return models.CameraResponse{}, false
	}
	return models.CameraResponse{CameraID: id, UserID: spec.UserID, URL: spec.URL}, true
}

func (f *fakeCameras) ActiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

type fakeVideos struct {
	jobs []models.VideoJob
	err  error
}

func (f *fakeVideos) Enqueue(ctx context.Context, job models.VideoJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeClassifier struct{ healthy bool }

func (f fakeClassifier) IsHealthy() bool { return f.healthy }

type fakePool struct{}

func (fakePool) Stats() workerpool.Stats { return workerpool.Stats{Workers: 3, QueueSize: 64} }

func newTestRouter(cams *fakeCameras, videos *fakeVideos, healthy bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Load()
	cfg.Environment = "test"
	return NewRouter(cfg, Routes{
		Cameras:    cams,
		Videos:     videos,
		Classifier: fakeClassifier{healthy: healthy},
		Pool:       fakePool{},
	})
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestRegisterAndStopCamera(t *testing.T) {
	cams := newFakeCameras(10)
	router := newTestRouter(cams, &fakeVideos{}, true)
	body := `{"camera_id":"1","user_id":"u1","camera_url":"10.0.0.2:8080/video"}`

	w, out := do(t, router, http.MethodPost, "/registerCamera", body)
	if w.Code != http.StatusOK || out["message"] != "Camera processing started." {
		t.Fatalf("register: %d %v", w.Code, out)
	}

	w, out = do(t, router, http.MethodPost, "/registerCamera", body)
	if w.Code != http.StatusBadRequest || out["error"] != "Camera is already active." {
		t.Fatalf("duplicate register: %d %v", w.Code, out)
	}

	w, out = do(t, router, http.MethodGet, "/cameras/1", "")
	if w.Code != http.StatusOK || out["camera_id"] != "1" {
		t.Fatalf("get camera: %d %v", w.Code, out)
	}

	w, out = do(t, router, http.MethodPost, "/stopCamera", `{"camera_id":"1"}`)
	if w.Code != http.StatusOK || out["message"] != "Camera 1 stopped successfully." {
		t.Fatalf("stop: %d %v", w.Code, out)
	}

	w, out = do(t, router, http.MethodPost, "/stopCamera", `{"camera_id":"1"}`)
	if w.Code != http.StatusNotFound || out["error"] != "Camera is not active." {
		t.Fatalf("second stop: %d %v", w.Code, out)
	}

	w, _ = do(t, router, http.MethodGet, "/cameras/1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stopped camera, got %d", w.Code)
	}
}

func TestRegisterCameraValidation(t *testing.T) {
	cams := newFakeCameras(10)
	router := newTestRouter(cams, &fakeVideos{}, true)

	bodies := []string{
		`{"user_id":"u1","camera_url":"x"}`,
		`{"camera_id":"1","camera_url":"x"}`,
		`{"camera_id":"1","user_id":"u1"}`,
		`not json`,
	}
	for _, body := range bodies {
		w, _ := do(t, router, http.MethodPost, "/registerCamera", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
	if cams.ActiveCount() != 0 {
		t.Error("malformed requests must not register cameras")
	}

	w, _ := do(t, router, http.MethodPost, "/stopCamera", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty stop request, got %d", w.Code)
	}
}

func TestRegisterCameraAtCapacity(t *testing.T) {
	router := newTestRouter(newFakeCameras(1), &fakeVideos{}, true)

	for i, want := range []int{http.StatusOK, http.StatusServiceUnavailable} {
		body := fmt.Sprintf(`{"camera_id":"%d","user_id":"u","camera_url":"x"}`, i)
		w, _ := do(t, router, http.MethodPost, "/registerCamera", body)
		if w.Code != want {
			t.Errorf("camera %d: expected %d, got %d", i, want, w.Code)
		}
	}
}

func TestListCameras(t *testing.T) {
	cams := newFakeCameras(10)
	router := newTestRouter(cams, &fakeVideos{}, true)
	for _, id := range []string{"a", "b"} {
		do(t, router, http.MethodPost, "/registerCamera", fmt.Sprintf(`{"camera_id":"%s","user_id":"u","camera_url":"x"}`, id))
	}

	w, out := do(t, router, http.MethodGet, "/cameras", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["count"] != float64(2) {
		t.Errorf("expected count 2, got %v", out["count"])
	}
}

func TestRegisterVideo(t *testing.T) {
	videos := &fakeVideos{}
	router := newTestRouter(newFakeCameras(1), videos, true)

	w, out := do(t, router, http.MethodPost, "/registerVideo", `{"video_url":"https://v/1.mp4"}`)
	if w.Code != http.StatusOK || out["message"] != "Video processing started." {
		t.Fatalf("register video: %d %v", w.Code, out)
	}
	if len(videos.jobs) != 1 || videos.jobs[0].VideoURL != "https://v/1.mp4" {
		t.Errorf("unexpected jobs %+v", videos.jobs)
	}

	w, _ = do(t, router, http.MethodPost, "/registerVideo", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing url, got %d", w.Code)
	}
}

func TestRegisterVideoErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: blank", batch.ErrInvalidJob), http.StatusBadRequest},
		{fmt.Errorf("failed to queue: %w", workerpool.ErrClosed), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		router := newTestRouter(newFakeCameras(1), &fakeVideos{err: tt.err}, true)
		w, _ := do(t, router, http.MethodPost, "/registerVideo", `{"video_url":"v.mp4"}`)
		if w.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, w.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newFakeCameras(1), &fakeVideos{}, false)

	w, out := do(t, router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["status"] != "degraded" || out["classifier_healthy"] != false {
		t.Errorf("unexpected health %v", out)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(newFakeCameras(1), &fakeVideos{}, true)

	w, _ := do(t, router, http.MethodOptions, "/registerCamera", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}
}

func TestMetricsAndStats(t *testing.T) {
	router := newTestRouter(newFakeCameras(1), &fakeVideos{}, true)

	w, _ := do(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", w.Code)
	}

	w, out := do(t, router, http.MethodGet, "/system/stats", "")
	if w.Code != http.StatusOK || out["success"] != true {
		t.Errorf("stats: %d %v", w.Code, out)
	}
}
