// Package retention enforces "keep at most N most-recent archives of one
// format" in a destination directory. Rotation runs only after a successful
// archive creation and tolerates per-file removal failures: concurrent runs
// against the same directory may race on deletion, and losing that race must
// not fail the invocation that already produced its archive.
package retention

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// RemovalError records one archive that could not be deleted during rotation.
type RemovalError struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// Outcome reports the result of one rotation pass. Errors being non-empty
// does not invalidate Remaining/Removed.
type Outcome struct {
	Remaining []string       `json:"remaining"`
	Removed   []string       `json:"removed,omitempty"`
	Errors    []RemovalError `json:"errors,omitempty"`
}

// Manager prunes old archives from a directory.
type Manager struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewManager(fs afero.Fs, logger *zap.Logger) *Manager {
	return &Manager{fs: fs, logger: logger}
}

type archiveEntry struct {
	name  string
	mtime int64
}

// Apply deletes the oldest archives in dir beyond keep. Archives are
// recognized by filename suffix match on extension, ordered by modification
// time ascending with filename as the tie-break so rotation stays
// deterministic under same-second creation. Only a failed directory listing
// is a hard error; individual removal failures are collected in the outcome.
func (m *Manager) Apply(ctx context.Context, dir, extension string, keep int) (Outcome, error) {
	if keep <= 0 {
		return Outcome{}, fmt.Errorf("retention count must be positive, got %d", keep)
	}

	entries, err := m.list(dir, extension)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{}
	excess := len(entries) - keep
	for i := 0; i < excess; i++ {
		if err := ctx.Err(); err != nil {
			return outcome, fmt.Errorf("rotation cancelled: %w", err)
		}

		name := entries[i].name
		if err := m.fs.Remove(filepath.Join(dir, name)); err != nil {
			m.logger.Warn("failed to remove archive during rotation",
				zap.String("archive", name),
				zap.Error(err),
			)
			outcome.Errors = append(outcome.Errors, RemovalError{Name: name, Err: err.Error()})
			continue
		}

		m.logger.Info("removed archive during rotation", zap.String("archive", name))
		outcome.Removed = append(outcome.Removed, name)
	}

	// Re-list so the outcome reflects what actually survived, including
	// files a failed Remove left behind.
	remaining, err := m.list(dir, extension)
	if err != nil {
		return outcome, err
	}
	outcome.Remaining = lo.Map(remaining, func(e archiveEntry, _ int) string {
		return e.name
	})

	return outcome, nil
}

// list returns the archives of the given extension in dir, oldest first.
func (m *Manager) list(dir, extension string) ([]archiveEntry, error) {
	infos, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives in %s: %w", dir, err)
	}

	var entries []archiveEntry
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), extension) {
			continue
		}
		entries = append(entries, archiveEntry{name: info.Name(), mtime: info.ModTime().UnixNano()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mtime != entries[j].mtime {
			return entries[i].mtime < entries[j].mtime
		}
		return entries[i].name < entries[j].name
	})

	return entries, nil
}
