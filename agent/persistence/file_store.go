package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BaSui01/agentroom/types"
)

const groupFileExt = ".json"

// FileGroupStore keeps one JSON file per group under BaseDir.
// Suitable for single-node production deployments.
type FileGroupStore struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileGroupStore creates the directory if needed.
func NewFileGroupStore(config StoreConfig) (*FileGroupStore, error) {
	if config.BaseDir == "" {
		return nil, fmt.Errorf("%w: base_dir is required for the file store", ErrInvalidInput)
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create group store directory: %w", err)
	}
	return &FileGroupStore{baseDir: config.BaseDir}, nil
}

// 文件名使用 PathEscape，群组名中的 "/" 不会逃出目录
func (s *FileGroupStore) path(name string) string {
	return filepath.Join(s.baseDir, url.PathEscape(name)+groupFileExt)
}

func (s *FileGroupStore) Save(ctx context.Context, group types.Group) error {
	if err := validName(group.Name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(normalize(group), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	// Atomic write: write to temp file then rename
	target := s.path(group.Name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write group file: %w", err)
	}
	return os.Rename(tmp, target)
}

func (s *FileGroupStore) Load(ctx context.Context, name string) (types.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Group{}, ErrStoreClosed
	}
	return s.read(s.path(name))
}

func (s *FileGroupStore) read(path string) (types.Group, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Group{}, ErrNotFound
	}
	if err != nil {
		return types.Group{}, err
	}
	var g types.Group
	if err := json.Unmarshal(data, &g); err != nil {
		return types.Group{}, fmt.Errorf("corrupt group file %s: %w", filepath.Base(path), err)
	}
	return normalize(g), nil
}

func (s *FileGroupStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileGroupStore) List(ctx context.Context) ([]types.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read group store directory: %w", err)
	}

	out := make([]types.Group, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), groupFileExt) {
			continue
		}
		g, err := s.read(filepath.Join(s.baseDir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ping checks that the directory is still reachable.
func (s *FileGroupStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := os.Stat(s.baseDir)
	return err
}

// Close closes the store
func (s *FileGroupStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
