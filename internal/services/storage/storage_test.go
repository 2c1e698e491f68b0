package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Upload(context.Background(), "u1/violence_detected_clip/cam_1.mp4", strings.NewReader("clip"), "video/mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "u1/violence_detected_clip/cam_1.mp4") {
		t.Errorf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "u1", "violence_detected_clip", "cam_1.mp4"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "clip" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFileStorePublicURL(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:5000/clips/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Upload(context.Background(), "/a/b.mp4", strings.NewReader("x"), "video/mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "http://localhost:5000/clips/a/b.mp4" {
		t.Errorf("unexpected url %q", url)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for _, key := range []string{"", "  ", "../escape.mp4", "a/../../escape.mp4", "."} {
		if _, err := store.Upload(context.Background(), key, strings.NewReader("x"), "video/mp4"); err == nil {
			t.Errorf("expected key %q to be rejected", key)
		}
	}
}

func TestFileStoreHonoursContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Upload(ctx, "a.mp4", strings.NewReader("x"), "video/mp4"); err == nil {
		t.Error("expected cancelled context to fail upload")
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name, base, endpoint, want string
	}{
		{"supabase layout", "https://proj.supabase.co", "", "https://proj.supabase.co/storage/v1/object/public/video-analysis/u/k.mp4"},
		{"endpoint derived", "", "http://minio:9000", "http://minio:9000/video-analysis/u/k.mp4"},
		{"aws default", "", "", "https://video-analysis.s3.eu-west-1.amazonaws.com/u/k.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PublicURL(tt.base, tt.endpoint, "eu-west-1", "video-analysis", "u/k.mp4")
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
