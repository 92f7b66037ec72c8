package twin

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogEntry records one request served by the twin.
type RequestLogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Method        string    `json:"method"`
	Path          string    `json:"path"`
	StatusCode    int       `json:"status_code"`
	Authorization string    `json:"authorization,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
}

// requestLog keeps the last calls made against the twin so checklist runs
// can be inspected through /admin/requests. Once full, each new call
// overwrites the oldest one.
type requestLog struct {
	mu    sync.Mutex
	ring  []RequestLogEntry
	next  int // slot the next call is written to
	total int
}

func newRequestLog(capacity int) *requestLog {
	return &requestLog{ring: make([]RequestLogEntry, capacity)}
}

func (l *requestLog) record(e RequestLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring[l.next] = e
	l.next = (l.next + 1) % len(l.ring)
	l.total++
}

// calls returns the retained calls, oldest first.
func (l *requestLog) calls() []RequestLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total < len(l.ring) {
		return append([]RequestLogEntry(nil), l.ring[:l.total]...)
	}
	out := make([]RequestLogEntry, 0, len(l.ring))
	out = append(out, l.ring[l.next:]...)
	return append(out, l.ring[:l.next]...)
}

func (l *requestLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.ring)
	l.next, l.total = 0, 0
}

// Fault forces a response for every request to one path.
type Fault struct {
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"body,omitempty"`
	DelayMs    int    `json:"delay_ms,omitempty"`
}

// FaultRegistry holds injected faults keyed by exact request path.
type FaultRegistry struct {
	mu     sync.RWMutex
	faults map[string]Fault
}

// NewFaultRegistry creates an empty registry.
func NewFaultRegistry() *FaultRegistry {
	return &FaultRegistry{faults: make(map[string]Fault)}
}

// Set injects a fault for f.Path, replacing any earlier one.
func (fr *FaultRegistry) Set(f Fault) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults[f.Path] = f
}

// Check returns the fault for path, if any.
func (fr *FaultRegistry) Check(path string) (Fault, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	f, ok := fr.faults[path]
	return f, ok
}

// Reset clears all faults.
func (fr *FaultRegistry) Reset() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults = make(map[string]Fault)
}

// logRequests records each call in the request log and at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.record(RequestLogEntry{
			Timestamp:     start,
			Method:        r.Method,
			Path:          r.URL.Path,
			StatusCode:    status,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-Id"),
			DurationMs:    time.Since(start).Milliseconds(),
		})
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// injectFaults applies registered faults. It is mounted on the /api routes
// only, so the admin endpoints stay reachable.
func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fault, ok := s.faults.Check(r.URL.Path); ok {
			if fault.DelayMs > 0 {
				time.Sleep(time.Duration(fault.DelayMs) * time.Millisecond)
			}
			if fault.StatusCode > 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(fault.StatusCode)
				if fault.Body != "" {
					fmt.Fprint(w, fault.Body)
				} else {
					fmt.Fprintf(w, `{"detail":"injected fault (%d)"}`, fault.StatusCode)
				}
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
