// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package storage owns the append-only CSV log on the SD card.
//
// Every write opens and closes the file, so a card pulled between samples
// loses at most the record in flight. A record that cannot be written is
// dropped: it is not retried or buffered.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrStorageUnavailable is returned when the mount point cannot be used.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Storage writes log files below a mount point. It is the single writer
// for those files; concurrent appends are serialized.
type Storage struct {
	root   string
	logger *zap.SugaredLogger

	mu       sync.Mutex
	appended uint64
	dropped  uint64
}

// New returns a Storage rooted at the mount point root.
func New(root string, logger *zap.SugaredLogger) *Storage {
	return &Storage{root: root, logger: logger}
}

// CheckStorage probes that the mount point exists, is a directory, and
// accepts new files.
func (s *Storage) CheckStorage() error {
	if err := s.probe(); err != nil {
		s.logger.Errorw("Card Mount Failed", "root", s.root, "error", err)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.logger.Infow("storage mounted", "root", s.root)
	return nil
}

func (s *Storage) probe() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.root)
	}
	f, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}

// WriteHeader creates or truncates path and writes line to it.
func (s *Storage) WriteHeader(path, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := s.resolve(path)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Errorw("Failed to open file for writing", "path", full, "error", err)
		return fmt.Errorf("open %s for writing: %w", full, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		s.logger.Errorw("Write failed", "path", full, "error", err)
		return fmt.Errorf("write %s: %w", full, err)
	}
	if err := f.Close(); err != nil {
		s.logger.Errorw("Write failed", "path", full, "error", err)
		return fmt.Errorf("close %s: %w", full, err)
	}
	s.logger.Infow("File written", "path", full)
	return nil
}

// AppendRecord opens path in append mode, writes line, and closes it.
// On failure the record is dropped and counted.
func (s *Storage) AppendRecord(path, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := s.resolve(path)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.dropped++
		s.logger.Errorw("Failed to open file for appending", "path", full, "error", err)
		return fmt.Errorf("open %s for appending: %w", full, err)
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		s.dropped++
		s.logger.Errorw("Append failed", "path", full, "error", werr)
		return fmt.Errorf("append %s: %w", full, werr)
	}
	s.appended++
	s.logger.Debugw("Message appended", "path", full)
	return nil
}

// Stats returns how many records were appended and dropped.
func (s *Storage) Stats() (appended, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appended, s.dropped
}

// Root is the mount point.
func (s *Storage) Root() string { return s.root }

func (s *Storage) resolve(path string) string {
	return filepath.Join(s.root, path)
}
