// Package ratelimit throttles sign-in code requests and verifications.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per key per duration and
// starts its cleanup loop. Call Stop to end the loop.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(duration * 2)
	return l
}

// Allow reports whether a request for key fits in its current window, and
// counts it if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// CodeLimiter limits sign-in code traffic both per client IP and per email
// address, so neither one host nor many hosts can flood one inbox.
type CodeLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewCodeLimiter allows 10 requests per IP per minute and 5 per email
// address per 10 minutes.
func NewCodeLimiter() *CodeLimiter {
	return NewCodeLimiterWithConfig(10, time.Minute, 5, 10*time.Minute)
}

// NewCodeLimiterWithConfig creates a CodeLimiter with custom limits.
func NewCodeLimiterWithConfig(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *CodeLimiter {
	return &CodeLimiter{
		ip:    New(ipLimit, ipWindow),
		email: New(emailLimit, emailWindow),
	}
}

// Check counts a request for email from r. When it is refused, the returned
// message is safe to show the client.
func (cl *CodeLimiter) Check(r *http.Request, email string) (bool, string) {
	if !cl.ip.Allow(ClientIP(r)) {
		return false, "too many sign-in requests; wait a minute and try again"
	}
	if key := emailKey(email); key != "" && !cl.email.Allow(key) {
		return false, "too many sign-in codes requested for this address; wait a few minutes"
	}
	return true, ""
}

// ResetEmail clears the per-address count after a successful sign-in.
func (cl *CodeLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		cl.email.Reset(key)
	}
}

// Stop ends both cleanup loops.
func (cl *CodeLimiter) Stop() {
	cl.ip.Stop()
	cl.email.Stop()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
