package models

import "time"

// Video analysis statuses as stored in the video_analysis table.
const (
	VideoStatusPending   = "pending"
	VideoStatusCompleted = "completed"
	VideoStatusFailed    = "failed"
)

// Video analysis results.
const (
	VideoResultYes = "Yes"
	VideoResultNo  = "No"
)

// VideoJob is a request to classify a whole pre-recorded video.
type VideoJob struct {
	VideoURL   string    `json:"video_url"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// VideoRequest for API
type VideoRequest struct {
	VideoURL string `json:"video_url" binding:"required"`
}
