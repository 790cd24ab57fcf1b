package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// SQLiteStore persists history in a SQLite database. When the database cannot be
// opened it degrades to a JSONL FileStore next to it.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
	mu       sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	fallback := NewFileStore(strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl")
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return &SQLiteStore{path: path, fallback: fallback}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path, fallback: fallback}
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return &SQLiteStore{path: path, fallback: fallback}
	}
	return store
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS invocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		invocation_id TEXT,
		query TEXT,
		mode TEXT,
		retrieval INTEGER,
		output TEXT,
		section_count INTEGER,
		error_kind TEXT,
		duration_ms INTEGER
	);`)
	return err
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.HistoryRecord) error {
	if s.db == nil {
		return s.fallback.Save(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO invocations
		(timestamp, invocation_id, query, mode, retrieval, output, section_count, error_kind, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.InvocationID,
		record.Query,
		string(record.Mode),
		boolToInt(record.Retrieval),
		record.Output,
		record.SectionCount,
		string(record.ErrorKind),
		record.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// Records returns the newest entries first. A limit <= 0 returns everything.
func (s *SQLiteStore) Records(limit int) ([]domain.HistoryRecord, error) {
	if s.db == nil {
		return s.fallback.Records(limit)
	}
	query := "SELECT timestamp, invocation_id, query, mode, retrieval, output, section_count, error_kind, duration_ms FROM invocations ORDER BY id DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var ts, mode, kind string
		var retrieval int
		if err := rows.Scan(&ts, &rec.InvocationID, &rec.Query, &mode, &retrieval, &rec.Output, &rec.SectionCount, &kind, &rec.DurationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
		rec.Mode = domain.OutputMode(mode)
		rec.ErrorKind = domain.ErrorKind(kind)
		rec.Retrieval = retrieval == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback.Clear()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM invocations")
	return err
}

// Path returns the sqlite database path, or the JSONL path when degraded.
func (s *SQLiteStore) Path() string {
	if s.db == nil {
		return s.fallback.Path()
	}
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
