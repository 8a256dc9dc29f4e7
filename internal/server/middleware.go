package server

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	apiKeyHeader      = "X-API-Key"
	processTimeHeader = "X-Process-Time"
	maxTrackedClients = 4096
)

// requireAPIKey rejects requests without the configured key. The key may also
// be passed as the api_key query parameter, which browsers need for websockets.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := s.config.APIKey
		if want == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get(apiKeyHeader)
		if got == "" {
			got = r.URL.Query().Get("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			s.respondError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit applies a per-client token bucket of RateLimitPerMinute requests.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limits != nil && !s.limits.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies a client by API key when present, else by address.
func clientKey(r *http.Request) string {
	if k := r.Header.Get(apiKeyHeader); k != "" {
		return "key:" + k
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

type clientLimiters struct {
	perMinute int
	limiters  *lru.Cache[string, *rate.Limiter]
}

// newClientLimiters returns nil when perMinute disables limiting.
func newClientLimiters(perMinute int) *clientLimiters {
	if perMinute <= 0 {
		return nil
	}
	c, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		return nil
	}
	return &clientLimiters{perMinute: perMinute, limiters: c}
}

func (c *clientLimiters) allow(key string) bool {
	l, ok := c.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.perMinute)), c.perMinute)
		if prev, found, _ := c.limiters.PeekOrAdd(key, l); found {
			l = prev
		}
	}
	return l.Allow()
}

// processTime sets X-Process-Time (seconds) on every response.
func processTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &timedWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(tw, r)
	})
}

type timedWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (w *timedWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		elapsed := time.Since(w.start).Seconds()
		w.Header().Set(processTimeHeader, strconv.FormatFloat(elapsed, 'f', 6, 64))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *timedWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (w *timedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
