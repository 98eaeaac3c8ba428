package watchdog

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamed0406/httpwatchdog/internal/domain"
	"github.com/hamed0406/httpwatchdog/internal/match"
	"github.com/hamed0406/httpwatchdog/internal/probe"
	"github.com/hamed0406/httpwatchdog/internal/repo"
)

type LoopConfig struct {
	// Interval is the pause after a full cycle. It is not shortened by the
	// time the cycle took. Zero starts the next cycle immediately.
	Interval time.Duration
	// Timeout bounds each probe.
	Timeout time.Duration
	// HookTimeout bounds each history append and alert evaluation, so a
	// stalled database cannot hold up the cycle.
	HookTimeout time.Duration
}

const DefaultHookTimeout = 10 * time.Second

// Loop probes every entry in order, records each verdict, then sleeps.
// It is the only writer of the status store.
type Loop struct {
	Logger  *zap.Logger
	Store   repo.StatusWriter
	Prober  probe.Prober
	Specs   []domain.ResourceSpec
	Config  LoopConfig
	Results repo.ResultStore // optional history sink
	Alerter *Alerter         // optional

	now   func() time.Time
	cycle int
}

func NewLoop(
	logger *zap.Logger,
	store repo.StatusWriter,
	prober probe.Prober,
	specs []domain.ResourceSpec,
	cfg LoopConfig,
) *Loop {
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = probe.DefaultTimeout
	}
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = DefaultHookTimeout
	}
	return &Loop{
		Logger: logger,
		Store:  store,
		Prober: prober,
		Specs:  specs,
		Config: cfg,
		now:    time.Now,
	}
}

// Run cycles until ctx is cancelled or a status cannot be recorded. It
// returns ctx.Err() on cancellation and the store error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	l.Logger.Info("watchdog_started",
		zap.Int("entries", len(l.Specs)),
		zap.Duration("interval", l.Config.Interval),
		zap.Duration("timeout", l.Config.Timeout),
	)
	for {
		if err := l.RunCycle(ctx); err != nil {
			return err
		}
		l.Logger.Debug("sleeping", zap.Duration("interval", l.Config.Interval))
		if err := sleep(ctx, l.Config.Interval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunCycle probes each entry once, in configuration order.
func (l *Loop) RunCycle(ctx context.Context) error {
	l.cycle++
	var httpTime time.Duration
	for i, spec := range l.Specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, hits, ok := l.probeEntry(ctx, i, spec)
		if !ok {
			return ctx.Err()
		}
		httpTime += st.Elapsed

		entry, err := l.Store.Update(ctx, i, st)
		if err != nil {
			l.Logger.Error("status_update_failed",
				zap.Int("entry", i),
				zap.String("url", spec.URL),
				zap.Error(err),
			)
			return fmt.Errorf("record entry %d (%s): %w", i, spec.URL, err)
		}
		l.afterRecord(ctx, entry, hits)
	}
	l.Logger.Info("cycle_done",
		zap.Int("cycle", l.cycle),
		zap.Int("entries", len(l.Specs)),
		zap.Duration("http_time", httpTime),
	)
	return nil
}

// probeEntry returns ok=false when the probe was cut short by shutdown; such
// a probe is not recorded.
func (l *Loop) probeEntry(ctx context.Context, i int, spec domain.ResourceSpec) (st domain.PageStatus, hits []match.Hit, ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			l.Logger.Error("probe_panic",
				zap.String("correlation_id", correlationID),
				zap.Int("entry", i),
				zap.String("url", spec.URL),
				zap.String("panic", fmt.Sprintf("%v", r)),
				zap.ByteString("stack", debug.Stack()),
			)
			st = domain.PageStatus{
				LastChecked: l.now(),
				Verdict:     domain.TransportFailure(domain.CauseInternal, fmt.Sprintf("internal error (correlation_id: %s)", correlationID)),
				Elapsed:     time.Since(start),
			}
			hits, ok = nil, true
		}
	}()

	out := l.Prober.Probe(ctx, spec.URL, l.Config.Timeout)
	if ctx.Err() != nil {
		return domain.PageStatus{}, nil, false
	}
	v, m := Classify(out, spec.Patterns)
	return domain.PageStatus{LastChecked: l.now(), Verdict: v, Elapsed: out.Elapsed}, m.Hits, true
}

func (l *Loop) afterRecord(ctx context.Context, e domain.Entry, hits []match.Hit) {
	fields := []zap.Field{
		zap.Int("entry", e.Index),
		zap.String("url", e.Spec.URL),
		zap.String("verdict", e.Status.Verdict.Kind.String()),
		zap.Duration("elapsed", e.Status.Elapsed),
	}
	if e.Status.Verdict.Up() {
		l.Logger.Debug("probe_ok", append(fields, zap.Array("hits", hitList(hits)))...)
	} else {
		l.Logger.Warn("probe_failed", append(fields, zap.String("detail", e.Status.Verdict.Detail()))...)
	}

	if l.Results != nil {
		cr := domain.NewCheckResult(e)
		hctx, cancel := context.WithTimeout(ctx, l.Config.HookTimeout)
		err := l.Results.Append(hctx, &cr)
		cancel()
		if err != nil {
			l.Logger.Warn("result_append_error", zap.String("entry_key", e.Key()), zap.Error(err))
		}
	}
	if l.Alerter != nil {
		hctx, cancel := context.WithTimeout(ctx, l.Config.HookTimeout)
		err := l.Alerter.Observe(hctx, e)
		cancel()
		if err != nil {
			l.Logger.Warn("alert_error", zap.String("entry_key", e.Key()), zap.Error(err))
		}
	}
}

type hitList []match.Hit

func (h hitList) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, hit := range h {
		if err := enc.AppendObject(zapcore.ObjectMarshalerFunc(func(o zapcore.ObjectEncoder) error {
			o.AddString("pattern", hit.Pattern)
			o.AddInt("offset", hit.Offset)
			o.AddString("text", hit.Text)
			return nil
		})); err != nil {
			return err
		}
	}
	return nil
}
