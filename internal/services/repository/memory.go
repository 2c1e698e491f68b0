package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vigil-worker-go/internal/models"
)

// Memory is an in-process store used when DATABASE_URL is empty.
type Memory struct {
	mu            sync.RWMutex
	cameras       []models.CameraRecord
	videos        map[string]videoRow
	notifications map[string]models.Notification
}

type videoRow struct {
	status string
	result string
}

func NewMemory(cameras ...models.CameraRecord) *Memory {
	return &Memory{
		cameras:       cameras,
		videos:        make(map[string]videoRow),
		notifications: make(map[string]models.Notification),
	}
}

func (m *Memory) ListCameras(ctx context.Context) ([]models.CameraRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.CameraRecord(nil), m.cameras...), nil
}

// AddVideo inserts a pending video request.
func (m *Memory) AddVideo(videoURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[videoURL] = videoRow{status: models.VideoStatusPending}
}

func (m *Memory) ListPending(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for url, row := range m.videos {
		if row.status == models.VideoStatusPending {
			out = append(out, url)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SetResult upserts, so videos submitted straight to the API are tracked too.
func (m *Memory) SetResult(ctx context.Context, videoURL, status, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[videoURL] = videoRow{status: status, result: result}
	return nil
}

// VideoResult returns the stored status and result of a video.
func (m *Memory) VideoResult(videoURL string) (status, result string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.videos[videoURL]
	return row.status, row.result, ok
}

func (m *Memory) Create(ctx context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.notifications[n.ID]; exists {
		return fmt.Errorf("notification %s already exists", n.ID)
	}
	m.notifications[n.ID] = n
	return nil
}

func (m *Memory) AttachVideo(ctx context.Context, notificationID, videoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[notificationID]
	if !ok {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	n.VideoURL = &videoURL
	m.notifications[notificationID] = n
	return nil
}

// Notification returns a stored notification by id.
func (m *Memory) Notification(id string) (models.Notification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	return n, ok
}
