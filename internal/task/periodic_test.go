package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodic_StartStop(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("test", time.Second, func(ctx context.Context) {
		runs.Add(1)
	}, nil)

	assert.False(t, p.IsRunning())
	require.True(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.False(t, p.Start(context.Background()), "second start is a no-op")

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	p.Stop()
	assert.False(t, p.IsRunning())
	after := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")

	p.Stop()
}

func TestPeriodic_StopWaitsForJob(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	p := NewPeriodic("slow", time.Second, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}, nil)

	p.Start(context.Background())
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	p.Stop()
	assert.True(t, finished.Load(), "Stop returns after the running job")
}

func TestPeriodic_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPeriodic("ctx", time.Second, func(context.Context) {}, nil)
	p.Start(ctx)

	cancel()
	assert.Eventually(t, func() bool { return !p.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestPeriodic_Restart(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("restart", time.Second, func(context.Context) { runs.Add(1) }, nil)

	p.Start(context.Background())
	p.Stop()
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestNewPeriodic_MinimumInterval(t *testing.T) {
	p := NewPeriodic("fast", 10*time.Millisecond, func(context.Context) {}, nil)
	assert.Equal(t, time.Second, p.Interval())
}
