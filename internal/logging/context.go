package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxStartTime ctxKey = "start_time"
	ctxCameraID  ctxKey = "camera_id"
	ctxVideoURL  ctxKey = "video_url"
)

// SetCamera tags the request so later log lines carry the camera id.
func SetCamera(c *gin.Context, cameraID string) {
	if cameraID != "" {
		c.Set(string(ctxCameraID), cameraID)
	}
}

func SetVideo(c *gin.Context, videoURL string) {
	if videoURL != "" {
		c.Set(string(ctxVideoURL), videoURL)
	}
}

func withGinContext(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	for _, key := range []ctxKey{ctxRequestID, ctxCameraID, ctxVideoURL} {
		if v, ok := c.Get(string(key)); ok {
			if s, ok2 := v.(string); ok2 && s != "" {
				e.Str(string(key), s)
			}
		}
	}
	if v, ok := c.Get(string(ctxStartTime)); ok {
		if t, ok2 := v.(time.Time); ok2 {
			e.Dur("duration", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Error()) }
