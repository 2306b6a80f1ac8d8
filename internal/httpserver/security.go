package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"sigflow/internal/httputil"
)

// SecurityHeaders adds standard security headers to every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// Simple in-memory rate limiter: 10 requests/sec with burst 30, per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	lastSeen time.Time
	tokens   float64
}

var limiter = &rateLimiter{visitors: make(map[string]*visitor)}

func (rl *rateLimiter) pruneVisitors() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > 3*time.Minute {
			delete(rl.visitors, ip)
		}
	}
}

func init() {
	go func() {
		for {
			time.Sleep(1 * time.Minute)
			limiter.pruneVisitors()
		}
	}()
}

func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		limiter.mu.Lock()
		v, exists := limiter.visitors[ip]
		if !exists {
			v = &visitor{tokens: 30, lastSeen: time.Now()}
			limiter.visitors[ip] = v
		}

		now := time.Now()
		elapsed := now.Sub(v.lastSeen).Seconds()
		v.lastSeen = now

		v.tokens += elapsed * 10
		if v.tokens > 30 {
			v.tokens = 30
		}

		if v.tokens < 1 {
			limiter.mu.Unlock()
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		v.tokens -= 1
		limiter.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
