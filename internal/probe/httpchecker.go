package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout bounds a whole request when the caller passes no timeout.
const DefaultTimeout = 30 * time.Second

const (
	maxBodyBytes = 10 << 20 // 10MB
	userAgent    = "httpwatchdog/1.0"
)

// HTTPProber fetches pages with GET and never follows redirects.
type HTTPProber struct {
	Client *http.Client

	// DNSDiagnostics appends the host's DNS classification to network
	// error reasons, e.g. "dial tcp: ... dns=NXDOMAIN".
	DNSDiagnostics bool
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		Client: &http.Client{
			// per-request timeouts come from the context
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *HTTPProber) Probe(ctx context.Context, target string, timeout time.Duration) Outcome {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Kind: OutcomeNetworkError, Reason: fmt.Sprintf("build request: %v", err), Elapsed: time.Since(start)}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.Client.Do(req)
	if err != nil {
		return h.failure(ctx, target, err, time.Since(start))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Outcome{
			Kind:       OutcomeHTTPError,
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Elapsed:    time.Since(start),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		out := h.failure(ctx, target, fmt.Errorf("read body: %w", err), time.Since(start))
		out.StatusCode = resp.StatusCode
		return out
	}
	elapsed := time.Since(start)

	return Outcome{
		Kind:       OutcomeSuccess,
		Body:       decodeBody(raw, resp.Header.Get("Content-Type")),
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Elapsed:    elapsed,
	}
}

func (h *HTTPProber) failure(ctx context.Context, target string, err error, elapsed time.Duration) Outcome {
	if isTimeout(ctx, err) {
		return Outcome{Kind: OutcomeTimeout, Reason: "timeout: " + err.Error(), Elapsed: elapsed}
	}
	reason := err.Error()
	if h.DNSDiagnostics && !errors.Is(err, context.Canceled) {
		if dns := CheckDNS(context.WithoutCancel(ctx), extractHost(target)); dns.Class != "" {
			reason = strings.TrimSpace(fmt.Sprintf("%s dns=%s", reason, dns.Class))
		}
	}
	return Outcome{Kind: OutcomeNetworkError, Reason: reason, Elapsed: elapsed}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// reasonPhrase strips the code from resp.Status ("404 Not Found" -> "Not Found").
func reasonPhrase(resp *http.Response) string {
	if r, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok {
		return r
	}
	return http.StatusText(resp.StatusCode)
}

// decodeBody converts the body to UTF-8. A charset from a BOM or the
// Content-Type header wins; otherwise valid UTF-8 is kept as is, and only
// invalid input falls back to the <meta> charset or windows-1252.
func decodeBody(raw []byte, contentType string) string {
	enc, _, certain := charset.DetermineEncoding(raw, contentType)
	if !certain && utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(raw)))
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
