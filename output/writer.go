package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// WriteStats counts what a Write call did.
type WriteStats struct {
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
}

// Writer writes planned files to disk.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a writer. A nil logger falls back to slog.Default().
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write creates parent directories and writes every file whose content
// differs from disk.
func (w *Writer) Write(ctx context.Context, files []File) (WriteStats, error) {
	var stats WriteStats
	for _, f := range files {
		// Check for context cancellation between files
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		current, err := os.ReadFile(f.Path)
		if err == nil && bytes.Equal(current, []byte(f.Content)) {
			stats.Unchanged++
			continue
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return stats, fmt.Errorf("read %s: %w", f.RelPath, err)
		}

		if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
			return stats, fmt.Errorf("create directory for %s: %w", f.RelPath, err)
		}
		if err := os.WriteFile(f.Path, []byte(f.Content), 0644); err != nil {
			return stats, fmt.Errorf("write %s: %w", f.RelPath, err)
		}

		stats.Written++
		w.logger.Debug("Wrote file", "path", f.RelPath, "target", f.Target, "source_id", f.SourceID)
	}
	return stats, nil
}
