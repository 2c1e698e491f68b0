package api

import (
	"github.com/gin-gonic/gin"

	"vigil-worker-go/internal/api/handlers"
	"vigil-worker-go/internal/api/middleware"
	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/metrics"
)

// Routes are the services the HTTP surface delegates to.
type Routes struct {
	Cameras    handlers.CameraController
	Videos     handlers.VideoEnqueuer
	Classifier handlers.ClassifierHealth
	Pool       handlers.PoolStats
	// ClipDir, when set, is served under /clips.
	ClipDir string
}

// cameraRoutes is a controller that can also count active cameras.
type cameraRoutes interface {
	handlers.CameraController
	handlers.CameraCounter
}

func NewRouter(cfg *config.Config, r Routes) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestContext(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(),
	)

	var counter handlers.CameraCounter
	if cr, ok := r.Cameras.(cameraRoutes); ok {
		counter = cr
	}

	health := handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, r.Classifier, counter)
	cameras := handlers.NewCameraHandler(r.Cameras)
	videos := handlers.NewVideoHandler(r.Videos)
	system := handlers.NewSystemHandler(cfg.WorkerID, r.Pool, counter)

	router.GET("/", health.WorkerInfo)
	router.GET("/health", health.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/registerCamera", cameras.RegisterCamera)
	router.POST("/stopCamera", cameras.StopCamera)
	router.POST("/registerVideo", videos.RegisterVideo)

	cams := router.Group("/cameras")
	{
		cams.GET("", cameras.ListCameras)
		cams.GET("/:id", cameras.GetCamera)
	}

	router.GET("/system/stats", system.GetStats)

	if r.ClipDir != "" {
		router.Static("/clips", r.ClipDir)
	}

	setupSwagger(router, cfg)
	return router
}
