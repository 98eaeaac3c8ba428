package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-telegram/bot"
	"go.uber.org/multierr"
)

type countingNotifier struct {
	n   int
	err error
}

func (c *countingNotifier) Send(ctx context.Context, title, text string) error {
	c.n++
	return c.err
}

func TestMulti_SendsToAllAndCombinesErrors(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	a := &countingNotifier{err: e1}
	b := &countingNotifier{}
	c := &countingNotifier{err: e2}

	err := Multi{a, nil, b, c}.Send(context.Background(), "t", "x")
	if a.n != 1 || b.n != 1 || c.n != 1 {
		t.Fatalf("every notifier should be called once: %d %d %d", a.n, b.n, c.n)
	}
	errs := multierr.Errors(err)
	if len(errs) != 2 || !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("unexpected combined error: %v", err)
	}
}

func TestCollect_DropsDisabled(t *testing.T) {
	tg, err := NewTelegram("", 0)
	if err != nil || tg != nil {
		t.Fatalf("expected disabled telegram, got %v %v", tg, err)
	}
	if got := Collect(NewSlack(""), tg); got != nil {
		t.Fatalf("expected no notifiers, got %d", len(got))
	}
	if got := Collect(NewSlack("http://hook"), tg); len(got) != 1 {
		t.Fatalf("expected one notifier, got %d", len(got))
	}
}

func TestTelegram_SendMessage(t *testing.T) {
	var hits atomic.Int32
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
	}))
	defer ts.Close()

	tg, err := NewTelegram("123:abc", 42, bot.WithServerURL(ts.URL))
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
	if err := tg.Send(context.Background(), "DOWN", "https://a"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("want 1 request, got %d", hits.Load())
	}
	if !strings.Contains(body, "https://a") {
		t.Fatalf("message text missing from request: %q", body)
	}
}
