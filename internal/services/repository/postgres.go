// Package repository persists cameras, notifications and video analysis
// requests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vigil-worker-go/internal/models"
)

var ErrNotFound = errors.New("record not found")

// NewPool opens a pgx connection pool for databaseURL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres implements every persistence boundary on a single pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ListCameras returns the camera roster.
func (r *Postgres) ListCameras(ctx context.Context) ([]models.CameraRecord, error) {
	query := `
SELECT id::text, user_id::text, ip_address
FROM cameras
ORDER BY id;
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query cameras: %w", err)
	}
	defer rows.Close()

	var out []models.CameraRecord
	for rows.Next() {
		var rec models.CameraRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.IPAddress); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListPending returns the urls of videos awaiting analysis.
func (r *Postgres) ListPending(ctx context.Context) ([]string, error) {
	query := `
SELECT video_url
FROM video_analysis
WHERE status = $1;
`
	rows, err := r.pool.Query(ctx, query, models.VideoStatusPending)
	if err != nil {
		return nil, fmt.Errorf("query pending videos: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan video url: %w", err)
		}
		out = append(out, url)
	}
	return out, rows.Err()
}

// SetResult records the terminal status of a video. An empty result is
// stored as NULL.
func (r *Postgres) SetResult(ctx context.Context, videoURL, status, result string) error {
	query := `
UPDATE video_analysis
SET status = $2,
    results = NULLIF($3, '')
WHERE video_url = $1;
`
	tag, err := r.pool.Exec(ctx, query, videoURL, status, result)
	if err != nil {
		return fmt.Errorf("update video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", videoURL, ErrNotFound)
	}
	return nil
}

// Create inserts a notification with no video attached yet.
func (r *Postgres) Create(ctx context.Context, n models.Notification) error {
	query := `
INSERT INTO notifications (id, camera_id, user_id, notification_text, video_url)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.pool.Exec(ctx, query, n.ID, n.CameraID, n.UserID, n.Text, n.VideoURL)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// AttachVideo sets the clip url of an existing notification.
func (r *Postgres) AttachVideo(ctx context.Context, notificationID, videoURL string) error {
	query := `
UPDATE notifications
SET video_url = $2
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, notificationID, videoURL)
	if err != nil {
		return fmt.Errorf("update notification video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	return nil
}
