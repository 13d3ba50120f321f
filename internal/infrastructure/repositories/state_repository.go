package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/monitor"
	"github.com/tronwatch/tronwatch_service/internal/infrastructure/cache"
)

const (
	watermarksFile = "wallet-timestamps.json"
	seenFile       = "seen-hashes.json"

	watermarksKey = "wallet-timestamps"
	seenKey       = "seen-hashes"
)

var (
	_ monitor.StateStore = (*FileStateRepository)(nil)
	_ monitor.StateStore = (*RedisStateRepository)(nil)
)

// FileStateRepository keeps monitor progress in two JSON files. Each save
// rewrites its file wholesale.
type FileStateRepository struct {
	dir    string
	logger *zap.Logger
}

// NewFileStateRepository creates a repository rooted at dir
func NewFileStateRepository(dir string, logger *zap.Logger) *FileStateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStateRepository{dir: dir, logger: logger}
}

// LoadWatermarks returns the persisted watermarks; a missing file is empty state
func (r *FileStateRepository) LoadWatermarks(ctx context.Context) (map[string]int64, error) {
	marks := map[string]int64{}
	if err := r.read(watermarksFile, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

// SaveWatermarks rewrites the watermark file
func (r *FileStateRepository) SaveWatermarks(ctx context.Context, marks map[string]int64) error {
	if marks == nil {
		marks = map[string]int64{}
	}
	return r.write(watermarksFile, marks)
}

// LoadSeen returns the persisted seen hashes, oldest first
func (r *FileStateRepository) LoadSeen(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := r.read(seenFile, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// SaveSeen rewrites the seen-hash file
func (r *FileStateRepository) SaveSeen(ctx context.Context, hashes []string) error {
	if hashes == nil {
		hashes = []string{}
	}
	return r.write(seenFile, hashes)
}

func (r *FileStateRepository) read(name string, dest interface{}) error {
	path := filepath.Join(r.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", apperrors.ErrPersistence, path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: decode %s: %v", apperrors.ErrPersistence, path, err)
	}
	return nil
}

func (r *FileStateRepository) write(name string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", apperrors.ErrPersistence, name, err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", apperrors.ErrPersistence, r.dir, err)
	}

	path := filepath.Join(r.dir, name)
	tmp, err := os.CreateTemp(r.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", apperrors.ErrPersistence, path, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", apperrors.ErrPersistence, path, errors.Join(werr, cerr))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: replace %s: %v", apperrors.ErrPersistence, path, err)
	}

	r.logger.Debug("State file written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// RedisStateRepository keeps monitor progress under two Redis keys so
// several hosts can share it.
type RedisStateRepository struct {
	client cache.RedisClient
	prefix string
	logger *zap.Logger
}

// NewRedisStateRepository creates a repository whose keys start with prefix
func NewRedisStateRepository(client cache.RedisClient, prefix string, logger *zap.Logger) *RedisStateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStateRepository{client: client, prefix: prefix, logger: logger}
}

func (r *RedisStateRepository) key(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + ":" + name
}

// LoadWatermarks returns the persisted watermarks; a missing key is empty state
func (r *RedisStateRepository) LoadWatermarks(ctx context.Context) (map[string]int64, error) {
	marks := map[string]int64{}
	if err := r.get(ctx, watermarksKey, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

// SaveWatermarks overwrites the watermark key
func (r *RedisStateRepository) SaveWatermarks(ctx context.Context, marks map[string]int64) error {
	if marks == nil {
		marks = map[string]int64{}
	}
	return r.set(ctx, watermarksKey, marks)
}

// LoadSeen returns the persisted seen hashes, oldest first
func (r *RedisStateRepository) LoadSeen(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := r.get(ctx, seenKey, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// SaveSeen overwrites the seen-hash key
func (r *RedisStateRepository) SaveSeen(ctx context.Context, hashes []string) error {
	if hashes == nil {
		hashes = []string{}
	}
	return r.set(ctx, seenKey, hashes)
}

func (r *RedisStateRepository) get(ctx context.Context, name string, dest interface{}) error {
	err := r.client.Get(ctx, r.key(name), dest)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", apperrors.ErrPersistence, r.key(name), err)
	}
	return nil
}

func (r *RedisStateRepository) set(ctx context.Context, name string, value interface{}) error {
	if err := r.client.Set(ctx, r.key(name), value, 0); err != nil {
		return fmt.Errorf("%w: save %s: %v", apperrors.ErrPersistence, r.key(name), err)
	}
	return nil
}
