package export

// ============================================================================
// Responsibilities:
// 1. Write rendered timelines to disk
// 2. Atomic writes (temp file + rename) so a reader never sees half a file
// 3. Optionally keep the previous rendering as a timestamped backup
// ============================================================================

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// Errors
// ============================================================================

var (
	ErrEmptyPath  = errors.New("export: output path is empty")
	ErrNotWritten = errors.New("export: output file not found")
)

// ============================================================================
// Writer
// ============================================================================

// Writer owns one output file.
type Writer struct {
	path        string     // output file path
	keepBackups int        // backups to keep, 0 disables
	mu          sync.Mutex // serializes file operations
	writes      int
}

// NewWriter returns a Writer for path. keepBackups > 0 keeps that many
// previous renderings next to the file.
func NewWriter(path string, keepBackups int) (*Writer, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &Writer{path: path, keepBackups: keepBackups}, nil
}

// Write atomically replaces the output with data.
//
// Flow:
//  1. Back up the current file if backups are enabled
//  2. Write data to <path>.tmp
//  3. os.Rename over the real path
func (w *Writer) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.keepBackups > 0 && w.exists() {
		if err := w.backup(); err != nil {
			return err
		}
	}

	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp output: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename output: %w", err)
	}

	w.writes++
	return nil
}

// Read returns the current file contents.
func (w *Writer) Read() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotWritten
		}
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	return data, nil
}

// Path returns the output path.
func (w *Writer) Path() string {
	return w.path
}

// Writes counts successful writes.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// Backups lists backup files, oldest first.
func (w *Writer) Backups() ([]string, error) {
	matches, err := filepath.Glob(w.path + ".*.bak")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (w *Writer) exists() bool {
	_, err := os.Stat(w.path)
	return err == nil
}

func (w *Writer) backup() error {
	// nanoseconds keep names unique and sortable within one second
	stamp := time.Now().Format("20060102_150405.000000000")
	stamp = strings.Replace(stamp, ".", "_", 1)
	backupPath := fmt.Sprintf("%s.%s.bak", w.path, stamp)

	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to read output for backup: %w", err)
	}
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	backups, err := w.Backups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	for len(backups) > w.keepBackups {
		os.Remove(backups[0])
		backups = backups[1:]
	}
	return nil
}
