package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemorySelectionStore keeps selections in process memory.
type MemorySelectionStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{data: make(map[string]string)}
}

func (m *MemorySelectionStore) Load(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[userID], nil
}

func (m *MemorySelectionStore) Save(_ context.Context, userID, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = tenantID
	return nil
}

func (m *MemorySelectionStore) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

// FileSelectionStore persists selections as a JSON object keyed by user id.
type FileSelectionStore struct {
	path string
	mu   sync.Mutex
}

// NewFileSelectionStore stores selections in the file at path. The parent directory
// is created on first write.
func NewFileSelectionStore(path string) *FileSelectionStore {
	return &FileSelectionStore{path: path}
}

func (f *FileSelectionStore) Load(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return "", err
	}
	return data[userID], nil
}

func (f *FileSelectionStore) Save(_ context.Context, userID, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}
	data[userID] = tenantID
	return f.write(data)
}

func (f *FileSelectionStore) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := data[userID]; !ok {
		return nil
	}
	delete(data, userID)
	return f.write(data)
}

func (f *FileSelectionStore) read() (map[string]string, error) {
	data := make(map[string]string)
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selection file: %w", err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode selection file: %w", err)
	}
	return data, nil
}

func (f *FileSelectionStore) write(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create selection dir: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write selection file: %w", err)
	}
	return os.Rename(tmp, f.path)
}
