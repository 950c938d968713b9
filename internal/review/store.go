package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	storeVersion   = 1
	reviewFileMode = 0644
	reviewDirMode  = 0755
)

type fileData struct {
	Version int      `json:"version"`
	Reviews []Review `json:"reviews"`
}

// Store persists review tickets to disk.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a review store under <workspace>/state/reviews.json.
func NewStore(workspace string) *Store {
	return &Store{path: filepath.Join(workspace, "state", "reviews.json")}
}

// Load reads persisted data from disk.
func (s *Store) Load() (fileData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultFileData(), nil
		}
		return fileData{}, fmt.Errorf("read review store: %w", err)
	}

	var parsed fileData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fileData{}, fmt.Errorf("parse review store: %w", err)
	}
	return normalizeFileData(parsed), nil
}

// Save writes persisted data to disk atomically.
func (s *Store) Save(data fileData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeFileData(data)

	encoded, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal review store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, reviewDirMode); err != nil {
		return fmt.Errorf("create review store dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "reviews-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp review store: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp review store: %w", err)
	}
	if err := tmpFile.Chmod(reviewFileMode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp review store: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp review store: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace review store: %w", err)
	}
	return nil
}

func defaultFileData() fileData {
	return fileData{
		Version: storeVersion,
		Reviews: []Review{},
	}
}

func normalizeFileData(data fileData) fileData {
	if data.Version <= 0 {
		data.Version = storeVersion
	}
	if data.Reviews == nil {
		data.Reviews = []Review{}
	}
	return data
}
