package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/httpwatchdog/internal/repo"
)

// Alerts keeps alert state in process; it is lost on restart.
type Alerts struct {
	mu sync.Mutex
	m  map[string]repo.AlertRecord
}

func NewAlerts() *Alerts {
	return &Alerts{m: make(map[string]repo.AlertRecord)}
}

func (a *Alerts) Get(ctx context.Context, entryKey string) (*repo.AlertRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.m[entryKey]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (a *Alerts) Set(ctx context.Context, entryKey string, lastState bool, sentAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	a.m[entryKey] = repo.AlertRecord{EntryKey: entryKey, LastState: lastState, LastSentAt: ts}
	return nil
}

var _ repo.AlertStore = (*Alerts)(nil)
