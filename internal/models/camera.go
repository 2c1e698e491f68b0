package models

import (
	"strings"
	"time"
)

// CameraStatus represents the camera worker operational status
type CameraStatus string

const (
	CameraStatusRunning  CameraStatus = "running"
	CameraStatusStopping CameraStatus = "stopping"
	CameraStatusStopped  CameraStatus = "stopped"
)

// String returns the string representation of CameraStatus
func (cs CameraStatus) String() string {
	return string(cs)
}

// CameraSpec is everything needed to start watching one camera.
type CameraSpec struct {
	CameraID string
	UserID   string
	URL      string
}

// CameraRecord is a row of the camera roster.
type CameraRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	IPAddress string `json:"ip_address"`
}

// Spec converts a roster row into a CameraSpec.
func (r CameraRecord) Spec() CameraSpec {
	return CameraSpec{CameraID: r.ID, UserID: r.UserID, URL: r.IPAddress}
}

// NormalizeCameraURL prefixes addresses stored without a scheme
// ("10.0.0.5:8080/video") with the configured default.
func NormalizeCameraURL(raw, defaultScheme string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	// Local device indexes and file paths are passed through untouched.
	if strings.HasPrefix(raw, "/") || isDigits(raw) {
		return raw
	}
	return defaultScheme + raw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// CameraRequest for API
type CameraRequest struct {
	CameraID  string `json:"camera_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	CameraURL string `json:"camera_url" binding:"required"`
}

// StopCameraRequest for API
type StopCameraRequest struct {
	CameraID string `json:"camera_id" binding:"required"`
}

// CameraResponse for API
type CameraResponse struct {
	CameraID       string       `json:"camera_id"`
	UserID         string       `json:"user_id"`
	URL            string       `json:"url"`
	Status         CameraStatus `json:"status"`
	DetectionState string       `json:"detection_state"`
	StartedAt      time.Time    `json:"started_at"`
	LastFrameTime  time.Time    `json:"last_frame_time"`
	Stale          bool         `json:"stale"`
	FramesRead     int64        `json:"frames_read"`
	FramesDropped  int64        `json:"frames_dropped"`
	Sequences      int64        `json:"sequences_classified"`
	ClassifyErrors int64        `json:"classify_errors"`
	Episodes       int64        `json:"episodes"`
	LastError      string       `json:"last_error,omitempty"`
}

// MessageResponse is the body of every successful control call.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed control call.
type ErrorResponse struct {
	Error string `json:"error"`
}
