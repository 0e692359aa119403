package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

var _ Store = (*PebbleStore)(nil)

// PebbleStore keeps cache entries in an embedded pebble database.
type PebbleStore struct {
	db     *pebble.DB
	logger *zap.Logger
}

// NewPebbleStore opens (or creates) a pebble database at path.
func NewPebbleStore(path string, logger *zap.Logger) (*PebbleStore, error) {
	if path == "" {
		return nil, fmt.Errorf("pebble path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := pebble.Open(path, &pebble.Options{
		Cache:                    pebble.NewCache(8 << 20),
		MaxConcurrentCompactions: func() int { return 1 },
	})
	if err != nil {
		return nil, fmt.Errorf("open pebble database: %w", err)
	}
	logger.Debug("pebble cache opened", zap.String("path", path))
	return &PebbleStore{db: db, logger: logger}, nil
}

func (s *PebbleStore) Get(_ context.Context, key string) (string, error) {
	value, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	// value is only valid until closer is closed
	return string(value), nil
}

func (s *PebbleStore) Set(_ context.Context, key, value string) error {
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
