// Package timeouts holds the context deadlines handlers use for I/O.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks
//   - Short: single-document reads, sign-in code checks
//   - Medium: company lists, single writes, completeness reports
//   - Long: submits and deletes that touch several collections, image uploads
//   - Batch: CSV/XLSX imports and FinCEN filing runs
package timeouts

import (
	"sync"
	"time"
)

// Default timeout values.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 2 * time.Minute
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

// Ping returns the health check timeout.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for single-document operations.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for lists and single writes.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for multi-collection writes.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Batch returns the timeout for bulk imports and filing.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// Config holds timeout overrides. Zero values keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure applies overrides. Call it during startup, before serving.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&ping, cfg.Ping)
	set(&short, cfg.Short)
	set(&medium, cfg.Medium)
	set(&long, cfg.Long)
	set(&batch, cfg.Batch)
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long, batch = DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultBatch
}

// Current returns the values in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long, Batch: batch}
}
