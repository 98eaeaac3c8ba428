package watchdog

import (
	"regexp"

	"github.com/hamed0406/httpwatchdog/internal/domain"
	"github.com/hamed0406/httpwatchdog/internal/match"
	"github.com/hamed0406/httpwatchdog/internal/probe"
)

// Classify turns a probe outcome into a verdict. The body is only matched
// when the fetch succeeded; the match result is returned for logging.
func Classify(out probe.Outcome, patterns []*regexp.Regexp) (domain.Verdict, match.Result) {
	switch out.Kind {
	case probe.OutcomeSuccess:
		m := match.Match(out.Body, patterns)
		if m.Satisfied {
			return domain.OK(), m
		}
		return domain.PatternMismatch(m.Missing), m
	case probe.OutcomeHTTPError:
		return domain.HTTPFailure(out.StatusCode, out.Reason), match.Result{}
	case probe.OutcomeTimeout:
		return domain.TransportFailure(domain.CauseTimeout, out.Reason), match.Result{}
	default:
		return domain.TransportFailure(domain.CauseNetwork, out.Reason), match.Result{}
	}
}
