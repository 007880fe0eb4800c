// Package jsonl stores the history log as a file of JSON lines, one
// record per line.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fidde/glean_migration_tracker/pkg/models"
)

// Default configuration values
const (
	DefaultDataFile = "./data.json"

	// MaxLineSize bounds a single record; change logs can be long.
	MaxLineSize = 64 * 1024 * 1024
)

// Config contains file storage configuration.
type Config struct {
	// DataFile is the history log path
	DataFile string
}

// DefaultConfig returns the default file storage configuration.
func DefaultConfig() Config {
	return Config{DataFile: DefaultDataFile}
}

// Store is a file-backed history log.
type Store struct {
	config Config
	mu     sync.RWMutex
}

// New creates a store for cfg.DataFile, creating its directory.
func New(config Config) (*Store, error) {
	if config.DataFile == "" {
		return nil, errors.New("data file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(config.DataFile), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{config: config}, nil
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.config.DataFile
}

// Load reads every non-empty line. A missing file is an empty log; a
// malformed line is an error so that a later Save cannot drop it.
func (s *Store) Load(ctx context.Context) ([]*models.MigrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.config.DataFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer file.Close()

	var records []*models.MigrationRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		record, err := models.ParseRecordLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.config.DataFile, lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}

	return records, nil
}

// Save rewrites the whole file through a temporary file and a rename.
func (s *Store) Save(ctx context.Context, records []*models.MigrationRecord) error {
	var buf bytes.Buffer
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		if _, dup := seen[r.BuildID]; dup {
			return fmt.Errorf("%s: %w", r.BuildID, models.ErrDuplicateBuildID)
		}
		seen[r.BuildID] = struct{}{}

		line, err := r.Line()
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.config.DataFile, buf.Bytes()); err != nil {
		return fmt.Errorf("writing data file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not kept open.
func (s *Store) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
