package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/httpwatchdog/internal/domain"
	"github.com/hamed0406/httpwatchdog/internal/probe"
	"github.com/hamed0406/httpwatchdog/internal/repo"
	"github.com/hamed0406/httpwatchdog/internal/repo/memory"
)

// --- fakes ---

type scriptedProber struct {
	mu    sync.Mutex
	calls []string
	fn    func(url string) probe.Outcome
}

func (s *scriptedProber) Probe(ctx context.Context, url string, timeout time.Duration) probe.Outcome {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	return s.fn(url)
}

func (s *scriptedProber) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func okBody(body string) func(string) probe.Outcome {
	return func(string) probe.Outcome {
		return probe.Outcome{Kind: probe.OutcomeSuccess, StatusCode: 200, Body: body, Elapsed: time.Millisecond}
	}
}

type fakeResults struct {
	mu   sync.Mutex
	rows []domain.CheckResult
	err  error
}

func (f *fakeResults) Append(ctx context.Context, cr *domain.CheckResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *cr)
	return f.err
}

// stalledResults blocks until its context gives up, like a hung database.
type stalledResults struct {
	mu    sync.Mutex
	calls int
}

func (s *stalledResults) Append(ctx context.Context, cr *domain.CheckResult) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func newLoop(t *testing.T, store repo.StatusWriter, p probe.Prober, specs []domain.ResourceSpec) (*Loop, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoop(zap.New(core), store, p, specs, LoopConfig{Interval: time.Millisecond, Timeout: time.Second})
	return l, logs
}

// --- tests ---

func TestRunCycle_RecordsVerdictsInOrder(t *testing.T) {
	specs := []domain.ResourceSpec{
		{URL: "https://a", Patterns: patterns("spam", "eggs")},
		{URL: "https://a", Patterns: patterns("hammers")},
		{URL: "https://b"},
		{URL: "https://c"},
	}
	p := &scriptedProber{fn: func(url string) probe.Outcome {
		switch url {
		case "https://a":
			return probe.Outcome{Kind: probe.OutcomeSuccess, StatusCode: 200, Body: "<html>spam eggs</html>", Elapsed: 5 * time.Millisecond}
		case "https://b":
			return probe.Outcome{Kind: probe.OutcomeHTTPError, StatusCode: 404, Reason: "Not Found"}
		default:
			return probe.Outcome{Kind: probe.OutcomeTimeout, Reason: "timeout: context deadline exceeded"}
		}
	}}
	store := memory.New(specs)
	l, logs := newLoop(t, store, p, specs)

	if err := l.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	got := p.Calls()
	want := []string{"https://a", "https://a", "https://b", "https://c"}
	if len(got) != len(want) {
		t.Fatalf("calls = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}

	snap, _ := store.Snapshot(context.Background())
	if snap[0].Status.Verdict.Kind != domain.VerdictOK || snap[0].Status.Elapsed != 5*time.Millisecond {
		t.Fatalf("entry 0: %+v", snap[0].Status)
	}
	// Same URL, different patterns: tracked independently.
	if snap[1].Status.Verdict.Kind != domain.VerdictPatternMismatch || snap[1].Status.Verdict.Missing[0] != "hammers" {
		t.Fatalf("entry 1: %+v", snap[1].Status)
	}
	if snap[2].Status.Verdict.Kind != domain.VerdictHTTPFailure || snap[2].Status.Verdict.HTTPStatus != 404 {
		t.Fatalf("entry 2: %+v", snap[2].Status)
	}
	if snap[3].Status.Verdict.Cause != domain.CauseTimeout {
		t.Fatalf("entry 3: %+v", snap[3].Status)
	}
	for i, e := range snap {
		if !e.Status.Probed() {
			t.Fatalf("entry %d not probed", i)
		}
	}

	if n := logs.FilterMessage("probe_ok").Len(); n != 1 {
		t.Fatalf("want 1 probe_ok, got %d", n)
	}
	if n := logs.FilterMessage("probe_failed").Len(); n != 3 {
		t.Fatalf("want 3 probe_failed, got %d", n)
	}
	for _, e := range logs.FilterMessage("probe_failed").All() {
		if e.Level != zapcore.WarnLevel {
			t.Fatalf("probe_failed logged at %s", e.Level)
		}
	}
	if logs.FilterMessage("cycle_done").Len() != 1 {
		t.Fatalf("missing cycle_done")
	}
}

func TestRunCycle_LastCheckedIsMonotonic(t *testing.T) {
	specs := []domain.ResourceSpec{{URL: "https://a"}}
	store := memory.New(specs)
	l, _ := newLoop(t, store, &scriptedProber{fn: okBody("")}, specs)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	var prev time.Time
	for i := 0; i < 5; i++ {
		if err := l.RunCycle(context.Background()); err != nil {
			t.Fatalf("RunCycle: %v", err)
		}
		e, _ := store.Get(context.Background(), 0)
		if !e.Status.LastChecked.After(prev) {
			t.Fatalf("cycle %d: LastChecked %v not after %v", i, e.Status.LastChecked, prev)
		}
		prev = e.Status.LastChecked
	}
}

func TestRunCycle_PanicBecomesInternalFailure(t *testing.T) {
	specs := []domain.ResourceSpec{{URL: "https://boom"}, {URL: "https://fine"}}
	p := &scriptedProber{fn: func(url string) probe.Outcome {
		if url == "https://boom" {
			panic("kaboom")
		}
		return probe.Outcome{Kind: probe.OutcomeSuccess, StatusCode: 200}
	}}
	store := memory.New(specs)
	l, logs := newLoop(t, store, p, specs)

	if err := l.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	snap, _ := store.Snapshot(context.Background())
	v := snap[0].Status.Verdict
	if v.Kind != domain.VerdictTransportFailure || v.Cause != domain.CauseInternal {
		t.Fatalf("entry 0: %+v", v)
	}
	if snap[1].Status.Verdict.Kind != domain.VerdictOK {
		t.Fatalf("cycle did not continue after panic: %+v", snap[1].Status)
	}

	panics := logs.FilterMessage("probe_panic").All()
	if len(panics) != 1 {
		t.Fatalf("want 1 probe_panic log, got %d", len(panics))
	}
	id, _ := panics[0].ContextMap()["correlation_id"].(string)
	if id == "" {
		t.Fatalf("missing correlation id")
	}
	if want := "internal error (correlation_id: " + id + ")"; v.Reason != want {
		t.Fatalf("reason = %q, want %q", v.Reason, want)
	}
}

func TestRun_StoreFailureIsFatal(t *testing.T) {
	specs := []domain.ResourceSpec{{URL: "https://a"}}
	store := memory.New(specs)
	store.Close()
	l, _ := newLoop(t, store, &scriptedProber{fn: okBody("")}, specs)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := l.Run(ctx)
	if !errors.Is(err, repo.ErrStoreClosed) {
		t.Fatalf("want ErrStoreClosed, got %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	specs := []domain.ResourceSpec{{URL: "https://a"}}
	store := memory.New(specs)
	l, logs := newLoop(t, store, &scriptedProber{fn: okBody("")}, specs)
	l.Config.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("cycle_done").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first cycle never finished")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunCycle_InterruptedProbeIsNotRecorded(t *testing.T) {
	specs := []domain.ResourceSpec{{URL: "https://a"}}
	store := memory.New(specs)
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedProber{fn: func(string) probe.Outcome {
		cancel()
		return probe.Outcome{Kind: probe.OutcomeNetworkError, Reason: "context canceled"}
	}}
	l, _ := newLoop(t, store, p, specs)

	if err := l.RunCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	e, _ := store.Get(context.Background(), 0)
	if e.Status.Probed() {
		t.Fatalf("interrupted probe was recorded: %+v", e.Status)
	}
}

func TestRunCycle_HistoryFailureIsNotFatal(t *testing.T) {
	specs := []domain.ResourceSpec{{URL: "https://a"}, {URL: "https://b"}}
	store := memory.New(specs)
	results := &fakeResults{err: errors.New("db down")}
	l, logs := newLoop(t, store, &scriptedProber{fn: okBody("")}, specs)
	l.Results = results

	if err := l.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results.rows) != 2 || results.rows[1].EntryKey != "1:https://b" {
		t.Fatalf("unexpected history rows: %+v", results.rows)
	}
	if logs.FilterMessage("result_append_error").Len() != 2 {
		t.Fatalf("append errors not logged")
	}
}

func TestRunCycle_StalledHistoryIsBounded(t *testing.T) {
	specs := []domain.ResourceSpec{{URL: "https://a"}, {URL: "https://b"}}
	store := memory.New(specs)
	results := &stalledResults{}
	l, logs := newLoop(t, store, &scriptedProber{fn: okBody("")}, specs)
	l.Config.HookTimeout = 20 * time.Millisecond
	l.Results = results

	done := make(chan error, 1)
	go func() { done <- l.RunCycle(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunCycle: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cycle blocked on history sink")
	}

	snap, _ := store.Snapshot(context.Background())
	for i, e := range snap {
		if !e.Status.Probed() {
			t.Fatalf("entry %d not recorded", i)
		}
	}
	if results.calls != 2 {
		t.Fatalf("want 2 appends, got %d", results.calls)
	}
	for _, e := range logs.FilterMessage("result_append_error").All() {
		if err, _ := e.ContextMap()["error"].(string); err != context.DeadlineExceeded.Error() {
			t.Fatalf("unexpected append error %q", err)
		}
	}
	if logs.FilterMessage("result_append_error").Len() != 2 {
		t.Fatalf("timeouts not logged")
	}
}

// Readers snapshot continuously while the loop writes.
func TestRun_ConcurrentSnapshots(t *testing.T) {
	specs := []domain.ResourceSpec{
		{URL: "https://a", Patterns: patterns("x")},
		{URL: "https://b", Patterns: patterns("y")},
	}
	n := 0
	var mu sync.Mutex
	p := &scriptedProber{fn: func(string) probe.Outcome {
		mu.Lock()
		n++
		odd := n%2 == 1
		mu.Unlock()
		if odd {
			return probe.Outcome{Kind: probe.OutcomeSuccess, StatusCode: 200, Body: "nothing"}
		}
		return probe.Outcome{Kind: probe.OutcomeHTTPError, StatusCode: 500, Reason: "Internal Server Error"}
	}}
	store := memory.New(specs)
	l := NewLoop(zap.NewNop(), store, p, specs, LoopConfig{Interval: 0, Timeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap, err := store.Snapshot(context.Background())
				if err != nil {
					t.Errorf("Snapshot: %v", err)
					return
				}
				for _, e := range snap {
					v := e.Status.Verdict
					switch v.Kind {
					case domain.VerdictUnknown:
						if e.Status.Probed() {
							t.Errorf("probed entry with unknown verdict")
						}
					case domain.VerdictPatternMismatch:
						if len(v.Missing) != 1 || v.HTTPStatus != 0 {
							t.Errorf("torn mismatch: %+v", v)
						}
					case domain.VerdictHTTPFailure:
						if v.HTTPStatus != 500 || v.Missing != nil {
							t.Errorf("torn http failure: %+v", v)
						}
					default:
						t.Errorf("unexpected verdict %v", v.Kind)
					}
				}
			}
		}()
	}

	if err := l.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run: %v", err)
	}
	wg.Wait()
}
