package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// IdleEvicter - часть GameService, которая нужна уборщику.
type IdleEvicter interface {
	EvictIdle(maxIdle time.Duration) int
}

// SessionJanitor периодически закрывает сессии, брошенные игроками.
type SessionJanitor struct {
	sessions IdleEvicter
	interval time.Duration
	maxIdle  time.Duration
	logger   *zap.Logger
	done     chan struct{}
}

func NewSessionJanitor(sessions IdleEvicter, interval, maxIdle time.Duration, logger *zap.Logger) *SessionJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionJanitor{
		sessions: sessions,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   logger.Named("SessionJanitor"),
		done:     make(chan struct{}),
	}
}

// Run блокируется до отмены ctx.
func (j *SessionJanitor) Run(ctx context.Context) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Session janitor started", zap.Duration("interval", j.interval), zap.Duration("max_idle", j.maxIdle))
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Session janitor stopped")
			return
		case <-ticker.C:
			if n := j.sessions.EvictIdle(j.maxIdle); n > 0 {
				j.logger.Debug("Idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// Done закрывается после выхода из Run.
func (j *SessionJanitor) Done() <-chan struct{} { return j.done }
