package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/httpwatchdog/internal/domain"
)

var (
	ErrUnknownEntry = errors.New("unknown entry")
	ErrStoreClosed  = errors.New("status store closed")
)

// StatusReader is the read side handed to the report server.
type StatusReader interface {
	// Snapshot returns every entry in configuration order. The result is a
	// copy; callers may keep and render it without further locking.
	Snapshot(ctx context.Context) ([]domain.Entry, error)
}

// StatusWriter is the write side owned by the watchdog loop.
type StatusWriter interface {
	// Update replaces one entry's status as a single value.
	Update(ctx context.Context, index int, st domain.PageStatus) (domain.Entry, error)
}

type StatusStore interface {
	StatusReader
	StatusWriter
}

// ResultStore keeps the probe history. Implementations may be slow; the loop
// treats failures as non-fatal.
type ResultStore interface {
	Append(ctx context.Context, r *domain.CheckResult) error
}

// HistoryReader serves recent probe history for one entry, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, entryKey string, limit int) ([]domain.CheckResult, error)
}
