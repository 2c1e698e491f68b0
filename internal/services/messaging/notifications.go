package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vigil-worker-go/internal/models"
)

// Notification event types.
const (
	EventNotificationCreated = "notification.created"
	EventClipAttached        = "notification.clip_attached"
)

type NotificationEvent struct {
	Type           string    `json:"type"`
	NotificationID string    `json:"notification_id"`
	CameraID       string    `json:"camera_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Text           string    `json:"notification_text,omitempty"`
	VideoURL       string    `json:"video_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NotifyingStore publishes an event after each successful write to the
// wrapped store. Publish failures are logged and never fail the write.
type NotifyingStore struct {
	store   models.NotificationStore
	pub     Publisher
	subject string
	logger  zerolog.Logger
}

func NewNotifyingStore(store models.NotificationStore, pub Publisher, subject string, logger zerolog.Logger) *NotifyingStore {
	return &NotifyingStore{
		store:   store,
		pub:     pub,
		subject: subject,
		logger:  logger.With().Str("subject", subject).Logger(),
	}
}

func (s *NotifyingStore) Create(ctx context.Context, n models.Notification) error {
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	s.publish(NotificationEvent{
		Type:           EventNotificationCreated,
		NotificationID: n.ID,
		CameraID:       n.CameraID,
		UserID:         n.UserID,
		Text:           n.Text,
		Timestamp:      n.CreatedAt,
	})
	return nil
}

func (s *NotifyingStore) AttachVideo(ctx context.Context, notificationID, videoURL string) error {
	if err := s.store.AttachVideo(ctx, notificationID, videoURL); err != nil {
		return err
	}
	s.publish(NotificationEvent{
		Type:           EventClipAttached,
		NotificationID: notificationID,
		VideoURL:       videoURL,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}

func (s *NotifyingStore) publish(ev NotificationEvent) {
	if err := s.pub.Publish(s.subject, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("event", ev.Type).
			Str("notification_id", ev.NotificationID).
			Msg("Failed to publish notification event")
	}
}
