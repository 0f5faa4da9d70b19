package repositories

import (
	"context"

	"github.com/chrisdamba/urbanwatch/internal/models"
)

type CameraRepository interface {
	BulkCreate(ctx context.Context, cameras []models.Camera) error
	GetAll(ctx context.Context) ([]models.Camera, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}
