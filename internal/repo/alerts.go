package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last up/down state seen for an entry and the last
// time a notification went out for it (used for cooldown).
type AlertRecord struct {
	EntryKey   string
	LastState  bool
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, entryKey string) (*AlertRecord, error)
	// Set upserts the record. If sentAt.IsZero() we store NULL for last_sent_at.
	Set(ctx context.Context, entryKey string, lastState bool, sentAt time.Time) error
}
