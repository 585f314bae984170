package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvwtools/dvw-cli/api/schemas"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the durable working state mirrored to disk on every mutation.
// It is what survives a reload without a remote save.
type Snapshot struct {
	Nodes        []schemas.Node `json:"nodes"`
	Edges        []schemas.Edge `json:"edges"`
	ModelID      string         `json:"currentModelId,omitempty"`
	ModelName    string         `json:"currentModelName"`
	LastModified time.Time      `json:"lastModified"`
}

// FileCache stores the workspace snapshot as JSON under a single fixed path.
type FileCache struct {
	path string
	log  *zap.Logger
}

// NewFileCache creates a cache backed by the given file path.
func NewFileCache(path string, logger *zap.Logger) *FileCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCache{path: path, log: logger.Named("cache")}
}

// Write overwrites the cached snapshot. The write is atomic: the snapshot is
// written to a temp file in the same directory and renamed into place, so a
// crash mid-write never corrupts the previous snapshot.
func (c *FileCache) Write(snap Snapshot) error {
	snap.LastModified = time.Now().UTC()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode workspace snapshot: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".workspace-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	c.log.Debug("workspace cached",
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
		zap.String("model_id", snap.ModelID))
	return nil
}

// Read returns the cached snapshot. The second return value is false when no
// snapshot exists yet.
func (c *FileCache) Read() (Snapshot, bool, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to decode cache file: %w", err)
	}
	return snap, true, nil
}

// Clear removes the persisted snapshot. Missing files are a no-op.
func (c *FileCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear cache file: %w", err)
	}
	return nil
}
