package webui

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// clientWindow counts requests from one client in the current window.
type clientWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter caps requests per client in fixed windows.
//
// Each client gets limit requests per window; the counter resets when the
// window expires. Expired entries are removed by Cleanup.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]clientWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter allows limit requests per client per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]clientWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records a request from client. It returns false and the time until
// the window resets when the client is over its limit.
func (r *RateLimiter) Allow(client string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.clients[client]
	if !ok || !now.Before(w.resetAt) {
		r.clients[client] = clientWindow{count: 1, resetAt: now.Add(r.window)}
		return true, 0
	}
	if w.count >= r.limit {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	r.clients[client] = w
	return true, 0
}

// Cleanup removes expired windows and returns how many were removed.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for client, w := range r.clients {
		if !now.Before(w.resetAt) {
			delete(r.clients, client)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker calls Cleanup every interval until ctx is cancelled.
func (r *RateLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Cleanup()
			}
		}
	}()
}

// Count returns the number of tracked clients.
func (r *RateLimiter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (r *RateLimiter) Middleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		client := getClientIP(req)
		allowed, retry := r.Allow(client)
		if !allowed {
			seconds := int(retry.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			logger.Warn("rate limit exceeded",
				zap.String("client", client),
				zap.String("path", req.URL.Path))
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, req)
	})
}
