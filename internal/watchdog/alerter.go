package watchdog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/httpwatchdog/internal/domain"
	"github.com/hamed0406/httpwatchdog/internal/notify"
	"github.com/hamed0406/httpwatchdog/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter turns up/down transitions of recorded statuses into notifications.
type Alerter struct {
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	now      func() time.Time
}

func NewAlerter(alertDB repo.AlertStore, notifier notify.Notifier, cfg AlerterConfig) *Alerter {
	return &Alerter{
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Observe compares the entry's state with the last one stored and sends at
// most one notification.
func (a *Alerter) Observe(ctx context.Context, e domain.Entry) error {
	if !e.Status.Probed() {
		return nil
	}
	key := e.Key()
	up := e.Status.Verdict.Up()

	rec, err := a.alertDB.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load alert state: %w", err)
	}

	var lastSent time.Time
	if rec != nil && rec.LastSentAt != nil {
		lastSent = *rec.LastSentAt
	}

	// First sighting of a healthy entry is not news.
	if rec == nil && up {
		return a.alertDB.Set(ctx, key, up, time.Time{})
	}

	stateChanged := rec == nil || rec.LastState != up
	if !stateChanged {
		return nil
	}

	now := a.now()
	// Cooldown only matters for DOWN alerts (suppresses flapping).
	cooled := lastSent.IsZero() || now.Sub(lastSent) >= a.cfg.Cooldown

	downAlert := !up && cooled
	recoveryAlert := up && a.cfg.AlertOnRecovery // bypass cooldown

	if !downAlert && !recoveryAlert {
		// Record the new state; the previous send time keeps the cooldown.
		return a.alertDB.Set(ctx, key, up, lastSent)
	}

	title := "🔴 Page DOWN"
	if up {
		title = "🟢 Page RECOVERED"
	}
	text := fmt.Sprintf(
		"URL: %s\nStatus: %s\nDetail: %s\nRequest time: %d ms\nChecked: %s",
		e.Spec.URL,
		e.Status.Verdict.Kind.Label(),
		e.Status.Verdict.Detail(),
		e.Status.Elapsed.Milliseconds(),
		e.Status.LastChecked.Format(time.RFC3339),
	)

	// The send time is stored even when delivery failed.
	return multierr.Combine(
		a.notifier.Send(ctx, title, text),
		a.alertDB.Set(ctx, key, up, now),
	)
}
