package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FilePerms restricts session files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the session directory.
const DirPerms = 0o700

// Store holds the current session record. There is exactly one record;
// Save replaces it wholesale and Clear removes it.
type Store interface {
	// Load returns the stored record, or nil when no usable record exists.
	// Malformed or unreadable state is treated as absent, never an error.
	Load() *Record

	// Save replaces any prior record. The write is atomic from the
	// caller's perspective — no partial state is ever observable.
	Save(rec Record) error

	// Clear removes the record. Idempotent.
	Clear() error
}

// FileStore persists session records as JSON on disk. Records saved with
// Persist=false are held in memory only and vanish with the process.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	mem *Record // non-persistent record, process lifetime only
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileStore{path: path, logger: logger}
}

// Load reads the current record. An in-memory (non-persistent) record takes
// precedence over anything on disk, since it is always the newer of the two.
func (s *FileStore) Load() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mem != nil {
		rec := *s.mem
		return &rec
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		s.logger.Warn("session file unreadable, treating as absent",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// Malformed state never surfaces as an error — the session is
		// simply gone and the user logs in again. The file is left in
		// place for inspection.
		s.logger.Warn("session file malformed, treating as absent",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	if rec.Credential.AccessToken == "" {
		s.logger.Warn("session file missing credential, treating as absent",
			slog.String("path", s.path),
		)

		return nil
	}

	return &rec
}

// Save replaces the stored record. Persistent records are written to disk
// atomically (write-to-temp + rename); non-persistent records are kept in
// memory and any stale on-disk record is removed.
func (s *FileStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !rec.Persist {
		s.mem = &rec

		if err := s.removeFile(); err != nil {
			return err
		}

		return nil
	}

	s.mem = nil

	return s.writeFile(rec)
}

// Clear removes both the in-memory and on-disk record.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem = nil

	return s.removeFile()
}

func (s *FileStore) removeFile() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: removing %s: %w", s.path, err)
	}

	return nil
}

func (s *FileStore) writeFile(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("session: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("session: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("session: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("session: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("session: renaming: %w", err)
	}

	success = true

	return nil
}
