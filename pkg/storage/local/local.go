package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/feichai0017/image2pdf/pkg/logger"
)

var ErrInvalidKey = errors.New("key escapes the output directory")

// LocalStorage writes artifacts into a directory on disk.
type LocalStorage struct {
	dir    string
	logger logger.Logger
}

func NewLocalStorage(dir string, log logger.Logger) (*LocalStorage, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &LocalStorage{
		dir:    abs,
		logger: log.Named("local"),
	}, nil
}

// Dir returns the absolute output directory.
func (l *LocalStorage) Dir() string {
	return l.dir
}

func (l *LocalStorage) path(key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return filepath.Join(l.dir, key), nil
}

// Store writes to a temp file first so a failed write never leaves a
// truncated PDF behind.
func (l *LocalStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".img2pdf-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		l.logger.Error("Failed to store file",
			logger.String("key", key),
			logger.Error(err),
		)
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	return dst, nil
}

func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// CleanupBefore removes regular files under the output directory whose
// modification time is before threshold. Failures are logged and skipped.
func (l *LocalStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	return filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			l.logger.Error("Error reading file info",
				logger.String("path", path),
				logger.Error(err),
			)
			return nil
		}
		if !info.ModTime().Before(threshold) {
			return nil
		}

		if err := os.Remove(path); err != nil {
			l.logger.Error("Failed to delete expired file",
				logger.String("path", path),
				logger.Error(err),
			)
			return nil
		}
		l.logger.Info("Deleted expired file",
			logger.String("path", path),
			logger.Time("lastModified", info.ModTime()),
		)
		return nil
	})
}
