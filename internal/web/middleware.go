package web

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"resume-tailor/internal/common/errors"
	"resume-tailor/internal/common/metrics"
)

// idleLimiterTTL is how long an address's bucket is kept after its last
// request.
const idleLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	every    rate.Limit
	burst    int
	lastScan time.Time
	now      func() time.Time
}

func newIPLimiter(perMinute float64, burst int) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		entries: make(map[string]*limiterEntry),
		every:   rate.Limit(perMinute / 60),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastScan) > idleLimiterTTL {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > idleLimiterTTL {
				delete(l.entries, k)
			}
		}
		l.lastScan = now
	}

	e, ok := l.entries[addr]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[addr] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// clientAddr returns the address the nearest untrusted hop connected from.
// Each of the trustedProxies appends one X-Forwarded-For entry, so the client
// is trustedProxies entries from the right; anything left of it is supplied
// by the caller and ignored. With no trusted proxies the header is ignored.
func clientAddr(r *http.Request, trustedProxies int) string {
	if trustedProxies > 0 {
		var hops []string
		for _, v := range r.Header.Values("X-Forwarded-For") {
			for _, hop := range strings.Split(v, ",") {
				hops = append(hops, strings.TrimSpace(hop))
			}
		}
		if i := len(hops) - trustedProxies; i >= 0 && hops[i] != "" {
			return hops[i]
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) rateLimited(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r, h.cfg.Server.TrustedProxies)
		if h.limiter.allow(client) {
			next.ServeHTTP(w, r)
			return
		}
		stdErr := errors.NewRateLimitedError()
		metrics.RateLimited.Inc()
		h.logger.Warn("submission rate limited", map[string]interface{}{
			"client":    client,
			"path":      r.URL.Path,
			"errorCode": string(stdErr.Code),
		})
		page := pageIndex
		if strings.HasPrefix(r.URL.Path, "/builder") {
			page = pageBuilder
		}
		w.Header().Set("Retry-After", "60")
		h.render(w, errors.HTTPStatus(stdErr.Code), page, &pageData{
			Token: r.URL.Query().Get("token"),
			Error: "Too many submissions from your network. Please wait a minute and try again.",
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latencies per matched route.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		h.obs.RecordRequest(r.Context(), route, rec.status, time.Since(start))
	})
}
