package loader

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/factories"
	"github.com/chrisdamba/urbanwatch/internal/models"
	"github.com/chrisdamba/urbanwatch/internal/repositories"
)

// Provider yields the camera set the dashboard runs on.
type Provider interface {
	Cameras(ctx context.Context) ([]models.Camera, error)
}

// Loader reads a camera document from a Source and keeps only valid records
// with unique keys.
type Loader struct {
	source Source
	logger *zap.Logger
}

func New(source Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, logger: logger}
}

func (l *Loader) Cameras(ctx context.Context) ([]models.Camera, error) {
	body, format, err := l.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	records, err := Decode(body, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.source, err)
	}

	cameras := make([]models.Camera, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.Err != nil {
			l.logger.Warn("Skipping camera record", zap.Int("index", rec.Index), zap.Error(rec.Err))
			continue
		}
		if _, dup := seen[rec.Camera.Key]; dup {
			l.logger.Warn("Skipping duplicate camera", zap.Int("index", rec.Index), zap.String("key", rec.Camera.Key))
			continue
		}
		seen[rec.Camera.Key] = struct{}{}
		cameras = append(cameras, rec.Camera)
	}

	l.logger.Info("Loaded cameras",
		zap.String("source", l.source.String()),
		zap.Int("records", len(records)),
		zap.Int("cameras", len(cameras)))
	return cameras, nil
}

type RepositoryProvider struct {
	Repo repositories.CameraRepository
}

func (p RepositoryProvider) Cameras(ctx context.Context) ([]models.Camera, error) {
	cameras, err := p.Repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cameras from repository: %w", err)
	}
	return cameras, nil
}

type SyntheticProvider struct {
	Config *models.Config
	Count  int
}

func (p SyntheticProvider) Cameras(ctx context.Context) ([]models.Camera, error) {
	return factories.NewCameraFactory(p.Config.Seed).CreateCameras(p.Config, p.Count), nil
}

// NewProvider builds the provider selected by cfg.CameraSource.Type. The
// postgres source needs a repository; pass nil for the other types.
func NewProvider(ctx context.Context, cfg *models.Config, repo repositories.CameraRepository, logger *zap.Logger) (Provider, error) {
	src := cfg.CameraSource
	switch src.Type {
	case "", models.SourceFile:
		return New(FileSource{Path: src.Path}, logger), nil
	case models.SourceHTTP:
		return New(HTTPSource{URL: src.URL, Client: &http.Client{Timeout: src.Timeout}}, logger), nil
	case models.SourceS3:
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(src.Region))
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		return New(S3Source{Bucket: src.Bucket, Key: src.Key, Client: s3.NewFromConfig(awsCfg)}, logger), nil
	case models.SourcePostgres:
		if repo == nil {
			return nil, fmt.Errorf("camera source %q needs a repository", src.Type)
		}
		return RepositoryProvider{Repo: repo}, nil
	case models.SourceSynthetic:
		return SyntheticProvider{Config: cfg, Count: src.Count}, nil
	default:
		return nil, fmt.Errorf("unsupported camera source: %s", src.Type)
	}
}
