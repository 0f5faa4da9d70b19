package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/urbanwatch/internal/models"
)

type CameraRepository struct {
	pool *pgxpool.Pool
}

func NewCameraRepository(pool *pgxpool.Pool) *CameraRepository {
	return &CameraRepository{pool: pool}
}

const upsertCamera = `
        INSERT INTO cameras (key, name, latitude, longitude, region, direction)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (key) DO UPDATE SET
            name = EXCLUDED.name,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            region = EXCLUDED.region,
            direction = EXCLUDED.direction`

func (r *CameraRepository) BulkCreate(ctx context.Context, cameras []models.Camera) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range cameras {
		batch.Queue(upsertCamera, c.Key, c.Name, c.Lat, c.Lon, c.Region, c.Direction)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert cameras: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *CameraRepository) GetAll(ctx context.Context) ([]models.Camera, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT key, name, latitude, longitude, region, direction
        FROM cameras
        ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		var c models.Camera
		if err := rows.Scan(&c.Key, &c.Name, &c.Lat, &c.Lon, &c.Region, &c.Direction); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		cameras = append(cameras, c)
	}
	return cameras, rows.Err()
}

func (r *CameraRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cameras").Scan(&count)
	return count, err
}

func (r *CameraRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "TRUNCATE TABLE cameras")
	return err
}
