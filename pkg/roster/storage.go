package roster

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage provides durable single-key persistence for the roster.
// Implementations must tolerate a missing key on first read.
type Storage interface {
	// Read returns the stored bytes for key, or found=false if the key
	// has never been written.
	Read(key string) (data []byte, found bool, err error)

	// Write durably replaces the stored bytes for key.
	Write(key string, data []byte) error
}

// FileStorage implements Storage with one JSON file per key inside a
// data directory. Writes go through a temp file and an atomic rename.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage creates a file-backed storage rooted at dir.
// If dir is empty, defaults to ~/.grimnote
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".grimnote")
	}
	return &FileStorage{dir: dir}, nil
}

// Dir returns the data directory backing this storage.
func (s *FileStorage) Dir() string {
	return s.dir
}

func (s *FileStorage) keyPath(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Read returns the contents of the key's file, found=false if absent.
func (s *FileStorage) Read(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Write replaces the key's file atomically (temp file + rename).
func (s *FileStorage) Write(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := s.keyPath(key)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file for %s: %w", key, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file for %s: %w", key, err)
	}
	return nil
}

// MemoryStorage is an in-memory Storage used by tests and the roster TUI
// when pointed at transient data.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Read returns the stored bytes for key.
func (s *MemoryStorage) Read(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

// Write replaces the stored bytes for key.
func (s *MemoryStorage) Write(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[key] = cp
	return nil
}
