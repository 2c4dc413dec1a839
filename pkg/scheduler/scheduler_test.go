package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEveryRunsRepeatedly(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs int32
	s.Every(50*time.Millisecond, FuncJob(func(context.Context) {
		atomic.AddInt32(&runs, 1)
	}))

	time.Sleep(180 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2))
}

func TestOnceAfterRunsOnce(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs int32
	s.OnceAfter(50*time.Millisecond, FuncJob(func(context.Context) {
		atomic.AddInt32(&runs, 1)
	}))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestStopCancelsPendingJobs(t *testing.T) {
	s := New()

	var runs int32
	s.Every(50*time.Millisecond, FuncJob(func(context.Context) {
		atomic.AddInt32(&runs, 1)
	}))
	s.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&runs))
}
