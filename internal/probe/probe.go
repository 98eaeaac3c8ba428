package probe

import (
	"context"
	"time"
)

// OutcomeKind tags the result of one fetch attempt.
type OutcomeKind int

const (
	// OutcomeSuccess: the server answered 200 OK and the body was read.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeHTTPError: the server answered with any status other than 200,
	// redirects included.
	OutcomeHTTPError
	// OutcomeNetworkError: no usable response (DNS, refused, TLS, reset...).
	OutcomeNetworkError
	// OutcomeTimeout: the request did not complete within its timeout.
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "invalid"
	}
}

// Outcome is the unified result of a single probe.
//
// Fields:
//   - Body: decoded UTF-8 body, only for OutcomeSuccess.
//   - StatusCode: HTTP status when a response arrived; 0 otherwise.
//   - Reason: HTTP reason phrase, or the cause of a network error / timeout.
//   - Elapsed: wall-clock time of the attempt, always set.
type Outcome struct {
	Kind       OutcomeKind
	Body       string
	StatusCode int
	Reason     string
	Elapsed    time.Duration
}

// Prober fetches one URL once. Implementations never return errors: every
// failure is expressed as an Outcome kind.
type Prober interface {
	Probe(ctx context.Context, url string, timeout time.Duration) Outcome
}
