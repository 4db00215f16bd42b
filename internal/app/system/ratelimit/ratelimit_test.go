package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_WindowAndExpiry(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k"))
	assert.Equal(t, 1, l.Remaining("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	assert.Equal(t, 0, l.Remaining("k"))
	assert.True(t, l.Allow("other"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.Equal(t, 2, l.Remaining("k"))
	assert.True(t, l.Allow("k"))

	l.Reset("k")
	assert.Equal(t, 2, l.Remaining("k"))
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()
	now := time.Now()
	l.now = func() time.Time { return now }
	l.Allow("a")

	now = now.Add(2 * time.Minute)
	l.sweep()
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.windows)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := New(1, time.Minute)
	l.Stop()
	l.Stop()
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/auth/code", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", ClientIP(r))

	r.Header.Set("X-Real-IP", " 10.1.1.1 ")
	assert.Equal(t, "10.1.1.1", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestCodeLimiter_PerEmail(t *testing.T) {
	cl := NewCodeLimiterWithConfig(100, time.Minute, 2, time.Minute)
	defer cl.Stop()
	r := httptest.NewRequest("POST", "/api/auth/code", nil)

	ok, _ := cl.Check(r, "Pat@Example.com")
	assert.True(t, ok)
	ok, _ = cl.Check(r, "pat@example.com ")
	assert.True(t, ok)
	ok, msg := cl.Check(r, "PAT@example.com")
	assert.False(t, ok)
	assert.Contains(t, msg, "this address")

	cl.ResetEmail("pat@example.com")
	ok, _ = cl.Check(r, "pat@example.com")
	assert.True(t, ok)
}

func TestCodeLimiter_PerIP(t *testing.T) {
	cl := NewCodeLimiterWithConfig(1, time.Minute, 100, time.Minute)
	defer cl.Stop()
	r := httptest.NewRequest("POST", "/api/auth/code", nil)

	ok, _ := cl.Check(r, "a@example.com")
	assert.True(t, ok)
	ok, msg := cl.Check(r, "b@example.com")
	assert.False(t, ok)
	assert.Contains(t, msg, "wait a minute")
}
