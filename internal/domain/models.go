package domain

import (
	"fmt"
	"regexp"
	"slices"
	"time"
)

// ResourceSpec is one monitored entry: a URL and the patterns its body must
// contain. Entries are immutable once the configuration is loaded.
type ResourceSpec struct {
	URL      string
	Patterns []*regexp.Regexp
}

// PatternStrings returns the source text of every pattern, in order.
func (r ResourceSpec) PatternStrings() []string {
	out := make([]string, 0, len(r.Patterns))
	for _, p := range r.Patterns {
		out = append(out, p.String())
	}
	return out
}

type VerdictKind int

const (
	VerdictUnknown VerdictKind = iota
	VerdictOK
	VerdictPatternMismatch
	VerdictHTTPFailure
	VerdictTransportFailure
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictOK:
		return "ok"
	case VerdictPatternMismatch:
		return "pattern_mismatch"
	case VerdictHTTPFailure:
		return "http_failure"
	case VerdictTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Label is the text shown on the report page. The report stylesheet has one
// class per label, so keep both in sync.
func (k VerdictKind) Label() string {
	switch k {
	case VerdictOK:
		return "MATCH"
	case VerdictPatternMismatch:
		return "NO MATCH"
	case VerdictHTTPFailure:
		return "HTTP ERROR"
	case VerdictTransportFailure:
		return "CONNECTION ERROR"
	default:
		return "NOT PROBED YET"
	}
}

// FailureCause tags a transport failure.
type FailureCause string

const (
	CauseTimeout  FailureCause = "timeout"
	CauseNetwork  FailureCause = "network"
	CauseInternal FailureCause = "internal"
)

// Verdict is the classified result of one probe. Only the fields relevant to
// Kind are set.
type Verdict struct {
	Kind       VerdictKind
	Missing    []string     // PatternMismatch
	HTTPStatus int          // HTTPFailure
	Cause      FailureCause // TransportFailure
	Reason     string       // HTTP reason phrase or transport error text
}

func OK() Verdict { return Verdict{Kind: VerdictOK} }

func PatternMismatch(missing []string) Verdict {
	return Verdict{Kind: VerdictPatternMismatch, Missing: missing}
}

func HTTPFailure(status int, reason string) Verdict {
	return Verdict{Kind: VerdictHTTPFailure, HTTPStatus: status, Reason: reason}
}

func TransportFailure(cause FailureCause, reason string) Verdict {
	return Verdict{Kind: VerdictTransportFailure, Cause: cause, Reason: reason}
}

// Up reports whether the verdict counts as the resource being available.
func (v Verdict) Up() bool { return v.Kind == VerdictOK }

// Detail is a one-line human description of the verdict.
func (v Verdict) Detail() string {
	switch v.Kind {
	case VerdictPatternMismatch:
		return fmt.Sprintf("missing %q", v.Missing)
	case VerdictHTTPFailure:
		if v.Reason == "" {
			return fmt.Sprintf("%d", v.HTTPStatus)
		}
		return fmt.Sprintf("%d %s", v.HTTPStatus, v.Reason)
	case VerdictTransportFailure:
		return fmt.Sprintf("%s: %s", v.Cause, v.Reason)
	default:
		return ""
	}
}

func (v Verdict) clone() Verdict {
	v.Missing = slices.Clone(v.Missing)
	return v
}

// PageStatus is the last known state of one entry. LastChecked and Verdict
// always belong to the same probe; the zero value is an unprobed entry.
type PageStatus struct {
	LastChecked time.Time
	Verdict     Verdict
	Elapsed     time.Duration
}

// Probed reports whether at least one probe has been recorded.
func (s PageStatus) Probed() bool { return !s.LastChecked.IsZero() }

// Clone returns a copy that shares no mutable state with s.
func (s PageStatus) Clone() PageStatus {
	s.Verdict = s.Verdict.clone()
	return s
}

// Entry pairs a configured resource with its current status. Index is the
// entry's position in the configuration and is its identity.
type Entry struct {
	Index  int
	Spec   ResourceSpec
	Status PageStatus
}

// Key identifies an entry across restarts of the same configuration. URLs
// alone are not unique, so the position is part of the key.
func (e Entry) Key() string { return EntryKey(e.Index, e.Spec.URL) }

func EntryKey(index int, url string) string {
	return fmt.Sprintf("%d:%s", index, url)
}
