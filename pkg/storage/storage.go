package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/image2pdf/config"
	"github.com/feichai0017/image2pdf/pkg/logger"
	"github.com/feichai0017/image2pdf/pkg/storage/local"
	"github.com/feichai0017/image2pdf/pkg/storage/minio"
	"github.com/feichai0017/image2pdf/pkg/storage/s3"
)

// StorageType selects the backend that receives converted PDFs.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage delivers finished artifacts somewhere the user can reach them.
type Storage interface {
	// Store writes the content under key and returns where it ended up.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes artifacts last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage builds the backend named by cfg.Type.
func NewStorage(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (Storage, error) {
	switch StorageType(cfg.Type) {
	case StorageTypeLocal, "":
		return local.NewLocalStorage(cfg.OutputDir, log)
	case StorageTypeS3:
		return s3.NewS3Storage(ctx, cfg.S3, log)
	case StorageTypeMinio:
		return minio.NewMinioStorage(ctx, cfg.Minio, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
