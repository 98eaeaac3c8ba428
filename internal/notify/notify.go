package notify

import (
	"context"

	"go.uber.org/multierr"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every configured notifier. One failing channel
// does not stop the others; all errors are returned combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Collect drops disabled (nil) notifiers. It returns nil when nothing is left.
func Collect(ns ...Notifier) Multi {
	var out Multi
	for _, n := range ns {
		if n != nil && !isNilPtr(n) {
			out = append(out, n)
		}
	}
	return out
}

func isNilPtr(n Notifier) bool {
	switch v := n.(type) {
	case *Slack:
		return v == nil
	case *Telegram:
		return v == nil
	}
	return false
}
