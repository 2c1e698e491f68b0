package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/config"
	"vigil-worker-go/internal/services"
)

type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	container *services.ServiceContainer
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	container, err := services.NewServiceContainer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create services: %w", err)
	}

	router := NewRouter(cfg, Routes{
		Cameras:    container.CameraManager,
		Videos:     container.Batch,
		Classifier: container.Classifier,
		Pool:       container.Pool,
		ClipDir:    container.ClipDir,
	})

	return &Server{
		config:    cfg,
		router:    router,
		container: container,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: router,
		},
	}, nil
}

// Start resumes persisted work and serves HTTP until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.container.Start(ctx); err != nil {
		return err
	}

	log.Info().Int("port", s.config.Port).Msg("Starting Vigil Worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then stops cameras and drains the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping Vigil Worker API...")
	httpErr := s.server.Shutdown(ctx)
	return errors.Join(httpErr, s.container.Shutdown(ctx))
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
