// internal/app/system/workers/otpcleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CodeClearer removes sign-in codes that expired before now.
type CodeClearer interface {
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// OTPCleanup is a background worker that removes expired sign-in codes.
type OTPCleanup struct {
	users    CodeClearer
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewOTPCleanup creates a new sign-in code cleanup worker that runs every interval.
func NewOTPCleanup(users CodeClearer, logger *zap.Logger, interval time.Duration) *OTPCleanup {
	return &OTPCleanup{
		users:    users,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *OTPCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("sign-in code cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *OTPCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("sign-in code cleanup worker stopped")
}

func (w *OTPCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *OTPCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.users.ClearExpiredOTPs(ctx, w.now())
	if err != nil {
		w.log.Error("failed to clear expired sign-in codes", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("cleared expired sign-in codes", zap.Int64("count", count))
	}
}
