package models

import (
	"context"
	"io"
)

// CameraRoster lists cameras that should be watched when the worker starts.
type CameraRoster interface {
	ListCameras(ctx context.Context) ([]CameraRecord, error)
}

// VideoStatusStore tracks pre-recorded video analysis requests.
type VideoStatusStore interface {
	ListPending(ctx context.Context) ([]string, error)
	SetResult(ctx context.Context, videoURL, status, result string) error
}

// NotificationStore persists user-facing alerts.
type NotificationStore interface {
	Create(ctx context.Context, n Notification) error
	AttachVideo(ctx context.Context, notificationID, videoURL string) error
}

// ObjectStore holds finished clips and returns a public URL for each.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Classifier maps one frame sequence to a label.
type Classifier interface {
	Classify(ctx context.Context, seq FrameSequence) (Label, error)
}
