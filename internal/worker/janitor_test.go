package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type countingEvicter struct {
	calls   atomic.Int32
	maxIdle atomic.Int64
}

func (c *countingEvicter) EvictIdle(maxIdle time.Duration) int {
	c.calls.Add(1)
	c.maxIdle.Store(int64(maxIdle))
	return 1
}

func TestSessionJanitor(t *testing.T) {
	defer goleak.VerifyNone(t)

	ev := &countingEvicter{}
	j := NewSessionJanitor(ev, 5*time.Millisecond, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go j.Run(ctx)

	assert.Eventually(t, func() bool { return ev.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-j.Done():
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
	assert.Equal(t, int64(time.Hour), ev.maxIdle.Load())
}
