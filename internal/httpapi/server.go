package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/httpwatchdog/internal/domain"
	apimw "github.com/hamed0406/httpwatchdog/internal/httpapi/middleware"
	"github.com/hamed0406/httpwatchdog/internal/repo"
)

// ReportPath is where the HTML report is served.
const ReportPath = "/"

// Server exposes the status store read-only.
type Server struct {
	Logger *zap.Logger
	Status repo.StatusReader
	// History is optional; without it the history endpoint answers 404.
	History repo.HistoryReader

	now func() time.Time
}

func NewServer(l *zap.Logger, status repo.StatusReader) *Server {
	return &Server{Logger: l, Status: status, now: time.Now}
}

// Router builds the handler. keys, allowedOrigins and the rate limit only
// guard the JSON API; the HTML report stays open like a status page.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, rpm, burst int) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get(ReportPath, s.handleReport)
	r.Head(ReportPath, s.handleReport)

	r.Group(func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "X-API-Key"},
			MaxAge:         300,
		}))
		api.Use(apimw.RateLimit(rpm, burst))
		api.Use(apimw.RequireAny(keys))
		api.Get("/api/status", s.handleStatus)
		api.Get("/api/status/{index}/history", s.handleHistory)
	})

	r.NotFound(s.handleNotFound)
	return r
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Status.Snapshot(r.Context())
	if err != nil {
		s.Logger.Error("snapshot_error", zap.Error(err))
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := renderReport(w, entries, s.now()); err != nil {
		s.Logger.Warn("report_render_error", zap.Error(err))
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if r.Method == http.MethodHead {
		return
	}
	if err := renderNotFound(w, ReportPath); err != nil {
		s.Logger.Warn("report_render_error", zap.Error(err))
	}
}

type statusView struct {
	Index       int        `json:"index"`
	URL         string     `json:"url"`
	Patterns    []string   `json:"patterns"`
	Verdict     string     `json:"verdict"`
	Label       string     `json:"label"`
	Up          bool       `json:"up"`
	Detail      string     `json:"detail,omitempty"`
	HTTPStatus  int        `json:"http_status,omitempty"`
	ElapsedMS   *float64   `json:"elapsed_ms"`
	LastChecked *time.Time `json:"last_checked"`
}

func newStatusView(e domain.Entry) statusView {
	v := statusView{
		Index:    e.Index,
		URL:      e.Spec.URL,
		Patterns: e.Spec.PatternStrings(),
		Verdict:  e.Status.Verdict.Kind.String(),
		Label:    e.Status.Verdict.Kind.Label(),
		Up:       e.Status.Verdict.Up(),
		Detail:   e.Status.Verdict.Detail(),
	}
	if e.Status.Verdict.Kind == domain.VerdictHTTPFailure {
		v.HTTPStatus = e.Status.Verdict.HTTPStatus
	}
	if e.Status.Probed() {
		ms := float64(e.Status.Elapsed.Microseconds()) / 1000
		at := e.Status.LastChecked.UTC()
		v.ElapsedMS = &ms
		v.LastChecked = &at
	}
	return v
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Status.Snapshot(r.Context())
	if err != nil {
		s.Logger.Error("snapshot_error", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"status unavailable"}`))
		return
	}
	out := make([]statusView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newStatusView(e))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// handleHistory returns the newest stored results for one entry.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSONError(w, http.StatusNotFound, "history disabled")
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid index")
		return
	}
	limit := defaultHistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.Status.Snapshot(r.Context())
	if err != nil {
		s.Logger.Error("snapshot_error", zap.Error(err))
		writeJSONError(w, http.StatusServiceUnavailable, "status unavailable")
		return
	}
	if index < 0 || index >= len(entries) {
		writeJSONError(w, http.StatusNotFound, "unknown entry")
		return
	}

	rows, err := s.History.Recent(r.Context(), entries[index].Key(), limit)
	if err != nil {
		s.Logger.Error("history_error", zap.Int("entry", index), zap.Error(err))
		writeJSONError(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}
	if rows == nil {
		rows = []domain.CheckResult{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
