package models

import (
	"context"
	"errors"
	"time"
)

// ErrSourceUnavailable is returned when a camera or video cannot be opened or
// stops producing frames.
var ErrSourceUnavailable = errors.New("source unavailable")

// Frame is a single decoded BGR24 image. A frame owns Data: sources copy the
// pixels out of the decoder, and frames are immutable once handed out, so
// sequences, the rolling buffer and clips share them by pointer.
type Frame struct {
	CameraID   string
	Seq        int64
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// FrameSequence is an ordered group of frames submitted to the classifier
// as one unit, oldest first.
type FrameSequence []*Frame

// First and Last return nil on an empty sequence.
func (s FrameSequence) First() *Frame {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

func (s FrameSequence) Last() *Frame {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// FrameSource is a pull-based feed of decoded frames. Read returns io.EOF at
// the end of a finite stream and any other error when the source fails.
type FrameSource interface {
	Read(ctx context.Context) (*Frame, error)
	Close() error
}

// SourceOpener opens a FrameSource for a camera URL.
type SourceOpener interface {
	Open(ctx context.Context, cameraID, url string) (FrameSource, error)
}

// SourceOpenerFunc adapts a function to SourceOpener.
type SourceOpenerFunc func(ctx context.Context, cameraID, url string) (FrameSource, error)

func (f SourceOpenerFunc) Open(ctx context.Context, cameraID, url string) (FrameSource, error) {
	return f(ctx, cameraID, url)
}
