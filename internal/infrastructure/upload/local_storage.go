package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/metrics"
)

// LocalStorage stages uploads under a base directory on local disk.
type LocalStorage struct {
	basePath string
	log      zerolog.Logger
}

// NewLocalStorage creates the base directory and one subdirectory per scope.
func NewLocalStorage(basePath string, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-upload-storage").Logger()

	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("upload directory is not configured")
	}
	for _, scope := range []string{ScopeChat, ScopeClassroom} {
		if err := os.MkdirAll(filepath.Join(basePath, scope), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}

	logger.Info().Str("path", basePath).Msg("local upload storage initialized")
	return &LocalStorage{basePath: basePath, log: logger}, nil
}

// Stage writes the file to disk under a fresh key.
func (l *LocalStorage) Stage(ctx context.Context, scope string, file File) (*domain.StagedAttachment, error) {
	key := newKey(scope)
	fullPath := l.path(key)

	out, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		metrics.RecordUpload("local", "error", 0)
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	written, copyErr := io.Copy(out, file.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(fullPath)
		metrics.RecordUpload("local", "error", 0)
		return nil, fmt.Errorf("failed to write file: %w", errors.Join(copyErr, closeErr))
	}

	metrics.RecordUpload("local", "success", written)
	l.log.Debug().Str("key", key).Int64("bytes", written).Msg("upload staged")

	return &domain.StagedAttachment{
		Key:       key,
		Filename:  file.Filename,
		MediaType: file.MediaType,
		Size:      written,
	}, nil
}

// Read returns the staged bytes.
func (l *LocalStorage) Read(ctx context.Context, key string) ([]byte, error) {
	if !validKey(key) {
		return nil, errInvalidKey
	}
	data, err := os.ReadFile(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Remove deletes the staged file. Removing a missing file is not an error.
func (l *LocalStorage) Remove(ctx context.Context, key string) error {
	if !validKey(key) {
		return errInvalidKey
	}
	if err := os.Remove(l.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Health checks that the upload directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("upload directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

func (l *LocalStorage) path(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

var _ Store = (*LocalStorage)(nil)
