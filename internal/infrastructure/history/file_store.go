package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// FileStore appends history records to a jsonl file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save implements ports.HistoryRepository.
func (f *FileStore) Save(record domain.HistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Clear removes the history file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Records loads entries newest first (best-effort; malformed lines are skipped).
func (f *FileStore) Records(limit int) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	var records []domain.HistoryRecord
	for i := len(lines) - 1; i >= 0; i-- {
		if limit > 0 && len(records) == limit {
			break
		}
		if len(lines[i]) == 0 {
			continue
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal(lines[i], &rec); err == nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

var _ ports.HistoryRepository = (*FileStore)(nil)
