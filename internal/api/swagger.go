package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"vigil-worker-go/docs"
	"vigil-worker-go/internal/config"
)

func setupSwagger(router *gin.Engine, cfg *config.Config) {
	docs.SwaggerInfo.Host = cfg.SwaggerHost
	docs.SwaggerInfo.Version = cfg.Version

	router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       docs.SwaggerInfo.Title,
			"version":     cfg.Version,
			"description": docs.SwaggerInfo.Description,
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"health":          "/health",
				"worker_info":     "/",
				"register_camera": "/registerCamera",
				"stop_camera":     "/stopCamera",
				"register_video":  "/registerVideo",
				"cameras":         "/cameras",
				"metrics":         "/metrics",
				"system":          "/system/stats",
			},
			"worker_id": cfg.WorkerID,
			"port":      cfg.Port,
		})
	})

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
