package archive

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/matthewgall/epicdeals/internal/config"
)

var ErrUnknownStorage = errors.New("unknown archive storage")

type Storage interface {
	Save(ctx context.Context, key string, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewStorage builds the configured backend. It returns nil when archiving is off.
func NewStorage(ctx context.Context, cfg config.ArchiveConfig) (Storage, error) {
	method := strings.ToLower(strings.TrimSpace(cfg.Method))
	switch method {
	case "", "none":
		return nil, nil
	case "local":
		baseDir := strings.TrimSpace(cfg.Local.Directory)
		if baseDir == "" {
			baseDir = "data/comparisons"
		}
		return NewLocal(baseDir), nil
	case "s3":
		storage, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return storage, nil
	default:
		return nil, ErrUnknownStorage
	}
}
