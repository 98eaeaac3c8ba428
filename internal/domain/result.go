package domain

import "time"

// CheckResult is the history row written for every recorded probe.
type CheckResult struct {
	ID         int64     `json:"id"`
	EntryKey   string    `json:"entry_key"`
	URL        string    `json:"url"`
	Up         bool      `json:"up"`
	Verdict    string    `json:"verdict"`
	HTTPStatus *int      `json:"http_status"` // pointer to allow nil
	LatencyMS  float64   `json:"latency_ms"`
	Reason     string    `json:"reason"`
	CheckedAt  time.Time `json:"checked_at"`
}

// NewCheckResult flattens an entry's current status into a history row.
func NewCheckResult(e Entry) CheckResult {
	r := CheckResult{
		EntryKey:  e.Key(),
		URL:       e.Spec.URL,
		Up:        e.Status.Verdict.Up(),
		Verdict:   e.Status.Verdict.Kind.String(),
		LatencyMS: float64(e.Status.Elapsed.Microseconds()) / 1000,
		Reason:    e.Status.Verdict.Detail(),
		CheckedAt: e.Status.LastChecked,
	}
	if e.Status.Verdict.Kind == VerdictHTTPFailure {
		v := e.Status.Verdict.HTTPStatus
		r.HTTPStatus = &v
	} else if e.Status.Verdict.Kind == VerdictOK || e.Status.Verdict.Kind == VerdictPatternMismatch {
		v := 200
		r.HTTPStatus = &v
	}
	return r
}
