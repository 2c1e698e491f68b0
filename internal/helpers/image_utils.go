package helpers

import (
	"fmt"

	"gocv.io/x/gocv"

	"vigil-worker-go/internal/models"
)

// JPEG quality settings
const (
	HighQuality   = 95
	MediumQuality = 75
	LowQuality    = 50
)

// isJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func isJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// convertBGRToJPEG safely converts BGR raw bytes to JPEG format
func convertBGRToJPEG(bgrData []byte, width, height int, quality int) ([]byte, error) {
	if len(bgrData) == 0 {
		return nil, fmt.Errorf("empty BGR data")
	}
	if width <= 0 || height <= 0 || width*height*3 != len(bgrData) {
		return nil, fmt.Errorf("BGR length %d does not match %dx%d", len(bgrData), width, height)
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, bgrData)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from BGR data: %w", err)
	}
	defer mat.Close()

	jpegBuf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode BGR as JPEG: %w", err)
	}
	defer jpegBuf.Close()

	// GetBytes aliases native memory released by Close.
	out := make([]byte, jpegBuf.Len())
	copy(out, jpegBuf.GetBytes())
	return out, nil
}

// JPEGEncoder returns a function that encodes frames for the classifier.
func JPEGEncoder(quality int) func(*models.Frame) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = HighQuality
	}
	return func(f *models.Frame) ([]byte, error) {
		return EncodeJPEG(f, quality)
	}
}

// EncodeJPEG converts a frame to JPEG, passing through data that already is.
func EncodeJPEG(f *models.Frame, quality int) ([]byte, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}
	if isJPEGData(f.Data) {
		return f.Data, nil
	}
	return convertBGRToJPEG(f.Data, f.Width, f.Height, quality)
}
