package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// defaultMaxClients caps how many client buckets are tracked at once so an
// address-spoofing flood cannot grow the map without bound.
const defaultMaxClients = 100_000

// RateLimiter enforces a per-client token bucket over the status API.
type RateLimiter struct {
	rps   float64
	burst int

	mu         sync.Mutex
	clients    map[string]*tokenBucket
	maxClients int

	now func() time.Time // for tests
}

// tokenBucket holds the remaining allowance for one client address. seen is
// both the refill anchor and the idle-eviction timestamp.
type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter allowing rps sustained requests per second
// per client, with burst tokens of headroom.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:        rps,
		burst:      burst,
		clients:    make(map[string]*tokenBucket),
		maxClients: defaultMaxClients,
		now:        time.Now,
	}
}

// Handler wraps next with the rate limit check. Rejected requests get a 429
// with Retry-After; every response carries the X-RateLimit headers.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := rl.take(clientKey(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(time.Second).Unix(), 10))

		if !v.allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(v.retryAfter)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type verdict struct {
	allowed    bool
	remaining  int
	retryAfter float64 // seconds until the next token, when rejected
}

// take refills the client's bucket for elapsed time and spends one token.
func (rl *RateLimiter) take(key string) verdict {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[key]
	if !ok {
		// At capacity new clients are rejected, not evicted.
		if len(rl.clients) >= rl.maxClients {
			return verdict{retryAfter: 1 / rl.rps}
		}
		b = &tokenBucket{tokens: float64(rl.burst), seen: now}
		rl.clients[key] = b
	}

	b.tokens = math.Min(float64(rl.burst), b.tokens+now.Sub(b.seen).Seconds()*rl.rps)
	b.seen = now

	if b.tokens < 1 {
		return verdict{retryAfter: (1 - b.tokens) / rl.rps}
	}
	b.tokens--
	return verdict{allowed: true, remaining: int(b.tokens)}
}

// StartCleanup evicts buckets idle for longer than maxIdle every interval.
// The returned stop function ends the background goroutine and is safe to
// call more than once.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rl.evictIdle(maxIdle)
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (rl *RateLimiter) evictIdle(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for key, b := range rl.clients {
		if b.seen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// Len reports how many client buckets are currently tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientKey derives the bucket key from the connection's remote address.
// Forwarding headers are resolved earlier in the chain when the deployment
// trusts them; this function never reads headers itself.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
