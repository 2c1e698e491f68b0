package helpers

import (
	"fmt"

	"gocv.io/x/gocv"

	"vigil-worker-go/internal/models"
)

// MP4Writer encodes BGR24 frames into an mp4v container.
type MP4Writer struct{}

// WriteClip writes frames in order to path at fps. Frames whose size differs
// from the first frame are skipped.
func (MP4Writer) WriteClip(path string, frames []*models.Frame, fps int) (int, error) {
	if len(frames) == 0 {
		return 0, fmt.Errorf("no frames to write")
	}
	if fps <= 0 {
		return 0, fmt.Errorf("invalid frame rate %d", fps)
	}

	width, height := frames[0].Width, frames[0].Height
	writer, err := gocv.VideoWriterFile(path, "mp4v", float64(fps), width, height, true)
	if err != nil {
		return 0, fmt.Errorf("failed to open video writer: %w", err)
	}
	defer writer.Close()

	if !writer.IsOpened() {
		return 0, fmt.Errorf("video writer not opened for %s", path)
	}

	written := 0
	for _, f := range frames {
		if f.Width != width || f.Height != height || len(f.Data) != width*height*3 {
			continue
		}

		mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, f.Data)
		if err != nil {
			return written, fmt.Errorf("failed to create Mat for frame %d: %w", f.Seq, err)
		}
		err = writer.Write(mat)
		mat.Close()
		if err != nil {
			return written, fmt.Errorf("failed to write frame %d: %w", f.Seq, err)
		}
		written++
	}

	if written == 0 {
		return 0, fmt.Errorf("no frame matched %dx%d", width, height)
	}
	return written, nil
}
