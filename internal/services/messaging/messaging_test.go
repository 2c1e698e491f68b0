package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"vigil-worker-go/internal/models"
)

type published struct {
	subject string
	event   NotificationEvent
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{subject, data.(NotificationEvent)})
	return nil
}

type fakeNotifications struct {
	created  []models.Notification
	attached map[string]string
	err      error
}

func (f *fakeNotifications) Create(ctx context.Context, n models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotifications) AttachVideo(ctx context.Context, id, url string) error {
	if f.err != nil {
		return f.err
	}
	if f.attached == nil {
		f.attached = make(map[string]string)
	}
	f.attached[id] = url
	return nil
}

func TestNotifyingStorePublishesAfterWrite(t *testing.T) {
	inner := &fakeNotifications{}
	pub := &fakePublisher{}
	store := NewNotifyingStore(inner, pub, "violence.notifications", zerolog.Nop())
	ctx := context.Background()

	n := models.Notification{ID: "n1", CameraID: "cam", UserID: "u", Text: models.NotificationText}
	if err := store.Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.AttachVideo(ctx, "n1", "https://clips/n1.mp4"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if len(inner.created) != 1 || inner.attached["n1"] != "https://clips/n1.mp4" {
		t.Fatal("writes were not forwarded to the inner store")
	}
	if len(pub.sent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.sent))
	}
	if pub.sent[0].subject != "violence.notifications" || pub.sent[0].event.Type != EventNotificationCreated {
		t.Errorf("unexpected first event %+v", pub.sent[0])
	}
	if pub.sent[1].event.Type != EventClipAttached || pub.sent[1].event.VideoURL != "https://clips/n1.mp4" {
		t.Errorf("unexpected second event %+v", pub.sent[1])
	}
}

func TestNotifyingStoreSkipsEventOnWriteFailure(t *testing.T) {
	inner := &fakeNotifications{err: errors.New("db down")}
	pub := &fakePublisher{}
	store := NewNotifyingStore(inner, pub, "s", zerolog.Nop())

	if err := store.Create(context.Background(), models.Notification{ID: "n1"}); err == nil {
		t.Fatal("expected write error")
	}
	if len(pub.sent) != 0 {
		t.Errorf("expected no events, got %d", len(pub.sent))
	}
}

func TestNotifyingStoreIgnoresPublishFailure(t *testing.T) {
	store := NewNotifyingStore(&fakeNotifications{}, &fakePublisher{err: errors.New("nats down")}, "s", zerolog.Nop())

	if err := store.Create(context.Background(), models.Notification{ID: "n1"}); err != nil {
		t.Fatalf("publish failure should not fail the write: %v", err)
	}
}

type fakeSubscriber struct {
	subject, queue string
	handler        func([]byte)
}

func (f *fakeSubscriber) QueueSubscribe(subject, queue string, handler func([]byte)) (*nats.Subscription, error) {
	f.subject, f.queue, f.handler = subject, queue, handler
	return nil, nil
}

type fakeEnqueuer struct {
	jobs []models.VideoJob
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, job models.VideoJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func TestVideoJobConsumer(t *testing.T) {
	sub := &fakeSubscriber{}
	enq := &fakeEnqueuer{}
	c := NewVideoJobConsumer(sub, enq, zerolog.Nop())
	defer c.Stop()

	if err := c.Start("videos.submit", "vigil-workers"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sub.subject != "videos.submit" || sub.queue != "vigil-workers" {
		t.Fatalf("subscribed to %s/%s", sub.subject, sub.queue)
	}

	sub.handler([]byte(`{"video_url":"https://v/1.mp4"}`))
	sub.handler([]byte("https://v/2.mp4\n"))
	sub.handler([]byte(`{"video_url":""}`))
	sub.handler([]byte(`{broken`))
	sub.handler(nil)

	if len(enq.jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(enq.jobs))
	}
	if enq.jobs[0].VideoURL != "https://v/1.mp4" || enq.jobs[1].VideoURL != "https://v/2.mp4" {
		t.Errorf("unexpected jobs %+v", enq.jobs)
	}
}
