package batch

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/models"
	"vigil-worker-go/internal/services/workerpool"
)

// sliceSource plays back a fixed list of frames then reports io.EOF.
type sliceSource struct {
	frames []*models.Frame
	failAt int
	pos    int
	closed bool
}

func (s *sliceSource) Read(ctx context.Context) (*models.Frame, error) {
	if s.failAt > 0 && s.pos == s.failAt {
		return nil, errors.New("corrupt packet")
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type fakeOpener struct {
	sources map[string]*sliceSource
}

func (o *fakeOpener) Open(ctx context.Context, url string) (models.FrameSource, error) {
	src, ok := o.sources[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return src, nil
}

// flagClassifier reports violent when the first frame of a group carries a 1.
type flagClassifier struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (c *flagClassifier) Classify(ctx context.Context, seq models.FrameSequence) (models.Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return models.LabelNonViolent, errors.New("classifier unavailable")
	}
	if seq.First().Data[0] == 1 {
		return models.LabelViolent, nil
	}
	return models.LabelNonViolent, nil
}

type result struct {
	status string
	value  string
}

type fakeStore struct {
	mu      sync.Mutex
	pending []string
	results map[string][]result
	done    chan string
}

func newFakeStore(pending ...string) *fakeStore {
	return &fakeStore{
		pending: pending,
		results: make(map[string][]result),
		done:    make(chan string, 16),
	}
}

func (s *fakeStore) ListPending(ctx context.Context) ([]string, error) {
	return s.pending, nil
}

func (s *fakeStore) SetResult(ctx context.Context, url, status, value string) error {
	s.mu.Lock()
	s.results[url] = append(s.results[url], result{status, value})
	s.mu.Unlock()
	s.done <- url
	return nil
}

func (s *fakeStore) get(url string) []result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]result(nil), s.results[url]...)
}

// inlineSubmitter runs tasks on the caller's goroutine.
type inlineSubmitter struct{}

func (inlineSubmitter) Submit(ctx context.Context, name string, task workerpool.Task) error {
	task(ctx)
	return nil
}

func groups(flags ...byte) []*models.Frame {
	var frames []*models.Frame
	for g, flag := range flags {
		for i := 0; i < 4; i++ {
			frames = append(frames, &models.Frame{Seq: int64(g*4 + i), Data: []byte{flag}})
		}
	}
	return frames
}

func testProcessor(opener VideoOpener, classifier models.Classifier, store models.VideoStatusStore, pool Submitter) *Processor {
	cfg := config.Load()
	cfg.SequenceLength = 4
	cfg.NotifyTimeout = time.Second
	return NewProcessor(cfg, opener, classifier, store, pool)
}

func TestProcessResults(t *testing.T) {
	tests := []struct {
		name   string
		frames []*models.Frame
		want   string
		calls  int
	}{
		{"violent last group", groups(0, 0, 1), models.VideoResultYes, 3},
		{"all non violent", groups(0, 0), models.VideoResultNo, 2},
		{"trailing partial group ignored", append(groups(0), &models.Frame{Data: []byte{1}}), models.VideoResultNo, 1},
		{"shorter than one group", groups(0)[:3], models.VideoResultNo, 0},
		{"violent first group still classifies the rest", groups(1, 0, 0), models.VideoResultYes, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &sliceSource{frames: tt.frames}
			opener := &fakeOpener{sources: map[string]*sliceSource{"video.mp4": src}}
			classifier := &flagClassifier{}
			store := newFakeStore()
			p := testProcessor(opener, classifier, store, inlineSubmitter{})

			if err := p.Enqueue(context.Background(), models.VideoJob{VideoURL: "video.mp4"}); err != nil {
				t.Fatalf("enqueue: %v", err)
			}

			got := store.get("video.mp4")
			if len(got) != 1 {
				t.Fatalf("expected exactly one status write, got %d", len(got))
			}
			if got[0].status != models.VideoStatusCompleted || got[0].value != tt.want {
				t.Errorf("expected completed/%s, got %s/%s", tt.want, got[0].status, got[0].value)
			}
			if classifier.calls != tt.calls {
				t.Errorf("expected %d classifier calls, got %d", tt.calls, classifier.calls)
			}
			if !src.closed {
				t.Error("expected source to be closed")
			}
		})
	}
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		src        *sliceSource
		classifier *flagClassifier
	}{
		{"open failure", "missing.mp4", nil, &flagClassifier{}},
		{"decode failure", "broken.mp4", &sliceSource{frames: groups(0, 0), failAt: 5}, &flagClassifier{}},
		{"classification failure", "video.mp4", &sliceSource{frames: groups(0)}, &flagClassifier{fail: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &fakeOpener{sources: map[string]*sliceSource{}}
			if tt.src != nil {
				opener.sources[tt.url] = tt.src
			}
			store := newFakeStore()
			p := testProcessor(opener, tt.classifier, store, inlineSubmitter{})

			if err := p.Enqueue(context.Background(), models.VideoJob{VideoURL: tt.url}); err != nil {
				t.Fatalf("enqueue: %v", err)
			}

			got := store.get(tt.url)
			if len(got) != 1 {
				t.Fatalf("expected exactly one status write, got %d", len(got))
			}
			if got[0].status != models.VideoStatusFailed {
				t.Errorf("expected failed status, got %s", got[0].status)
			}
		})
	}
}

// stallingSource never yields a frame; it only returns once ctx ends.
type stallingSource struct{}

func (stallingSource) Read(ctx context.Context) (*models.Frame, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stallingSource) Close() error { return nil }

type stallingOpener struct{}

func (stallingOpener) Open(ctx context.Context, url string) (models.FrameSource, error) {
	return stallingSource{}, nil
}

func TestProcessInterruptedLeavesPending(t *testing.T) {
	store := newFakeStore()
	p := testProcessor(stallingOpener{}, &flagClassifier{}, store, inlineSubmitter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Process(ctx, models.VideoJob{VideoURL: "video.mp4"})

	if got := store.get("video.mp4"); len(got) != 0 {
		t.Fatalf("interrupted job must not record a status, got %+v", got)
	}
}

func TestProcessInterruptedMidClassification(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	classifier := &cancellingClassifier{cancel: cancel}
	opener := &fakeOpener{sources: map[string]*sliceSource{"video.mp4": {frames: groups(0, 0)}}}
	store := newFakeStore()
	p := testProcessor(opener, classifier, store, inlineSubmitter{})

	p.Process(ctx, models.VideoJob{VideoURL: "video.mp4"})

	if got := store.get("video.mp4"); len(got) != 0 {
		t.Fatalf("interrupted job must not record a status, got %+v", got)
	}
}

// cancellingClassifier simulates shutdown arriving during inference.
type cancellingClassifier struct {
	cancel context.CancelFunc
}

func (c *cancellingClassifier) Classify(ctx context.Context, seq models.FrameSequence) (models.Label, error) {
	c.cancel()
	return models.LabelNonViolent, ctx.Err()
}

func TestEnqueueRejectsEmptyURL(t *testing.T) {
	p := testProcessor(&fakeOpener{}, &flagClassifier{}, newFakeStore(), inlineSubmitter{})

	err := p.Enqueue(context.Background(), models.VideoJob{VideoURL: "  "})
	if !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}
}

func TestResumePendingOnPool(t *testing.T) {
	opener := &fakeOpener{sources: map[string]*sliceSource{
		"a.mp4": {frames: groups(1)},
		"b.mp4": {frames: groups(0)},
	}}
	store := newFakeStore("a.mp4", "b.mp4")
	pool := workerpool.New(2, 4)
	defer pool.Shutdown(context.Background())

	p := testProcessor(opener, &flagClassifier{}, store, pool)

	queued, err := p.ResumePending(context.Background())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if queued != 2 {
		t.Fatalf("expected 2 queued videos, got %d", queued)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-store.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for video results")
		}
	}

	if got := store.get("a.mp4"); len(got) != 1 || got[0].value != models.VideoResultYes {
		t.Errorf("expected a.mp4 completed/Yes, got %+v", got)
	}
	if got := store.get("b.mp4"); len(got) != 1 || got[0].value != models.VideoResultNo {
		t.Errorf("expected b.mp4 completed/No, got %+v", got)
	}
}
