package models

import "time"

// Label is the classifier verdict for one frame sequence.
type Label int

const (
	LabelNonViolent Label = iota
	LabelViolent
)

func (l Label) String() string {
	switch l {
	case LabelViolent:
		return "violent"
	case LabelNonViolent:
		return "non_violent"
	default:
		return "unknown"
	}
}

// Classification carries the label along with what the backend reported.
type Classification struct {
	Label      Label
	ClassIndex int
	Name       string
	Score      float64
	Latency    time.Duration
}

// NotificationText is what the dashboard shows for a new episode.
const NotificationText = "Violence detected!"

// Notification is a user-facing alert for one violence episode. VideoURL stays
// nil until the clip has been uploaded.
type Notification struct {
	ID        string    `json:"id"`
	CameraID  string    `json:"camera_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"notification_text"`
	VideoURL  *string   `json:"video_url"`
	CreatedAt time.Time `json:"created_at"`
}

// ClipJob is a finalized episode waiting to be encoded and uploaded.
type ClipJob struct {
	CameraID       string
	UserID         string
	NotificationID string
	Frames         []*Frame
	FrameRate      int
	StartedAt      time.Time
	EndedAt        time.Time
	Truncated      bool // finalized early because the episode hit the clip cap
}

// Duration is the covered wall-clock span.
func (j *ClipJob) Duration() time.Duration {
	return j.EndedAt.Sub(j.StartedAt)
}
