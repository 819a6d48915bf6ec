package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an IP's limiter is kept after its last request.
const idleLimiterTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		now:      time.Now,
	}
}

// get returns the limiter for ip, dropping idle entries at most once per
// idleLimiterTTL.
func (ipl *ipLimiter) get(ip string) *rate.Limiter {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	now := ipl.now()
	if now.Sub(ipl.lastSweep) > idleLimiterTTL {
		for k, v := range ipl.visitors {
			if now.Sub(v.lastSeen) > idleLimiterTTL {
				delete(ipl.visitors, k)
			}
		}
		ipl.lastSweep = now
	}

	v, ok := ipl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(ipl.rate, ipl.burst)}
		ipl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (ipl *ipLimiter) size() int {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()
	return len(ipl.visitors)
}

// RateLimit returns middleware allowing perMinute requests per client IP with
// the given burst. Rejected requests are passed to onLimit, which writes the
// response; Retry-After is set before it runs.
func RateLimit(perMinute, burst int, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	il := newIPLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	retryAfter := strconv.Itoa(int((time.Minute / time.Duration(perMinute)).Seconds()) + 1)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !il.get(r.RemoteAddr).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
