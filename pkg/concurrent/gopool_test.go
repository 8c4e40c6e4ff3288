package concurrent

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoPoolRunsScheduledTasks(t *testing.T) {
	p := NewGoPool(4, 8)
	defer p.Close()

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		p.Schedule(func() {
			ran.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	if got := ran.Load(); got != 20 {
		t.Fatalf("ran %d tasks, want 20", got)
	}
}

func TestGoPoolScheduleTimeoutWhenSaturated(t *testing.T) {
	p := NewGoPool(1, 0)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	p.Schedule(func() {
		close(started)
		<-release
	})
	<-started

	err := p.ScheduleTimeout(20*time.Millisecond, func() {})
	if !errors.Is(err, ErrScheduleTimeout) {
		t.Fatalf("ScheduleTimeout on a saturated pool = %v, want ErrScheduleTimeout", err)
	}

	close(release)
}

func TestGoPoolSpawnCapsAtPoolSize(t *testing.T) {
	p := NewGoPool(2, 0)
	defer p.Close()

	p.Spawn(10)

	// both workers are idle, two tasks must be picked up without queueing
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		if err := p.ScheduleTimeout(time.Second, wg.Done); err != nil {
			t.Fatalf("ScheduleTimeout after Spawn: %v", err)
		}
	}
	wg.Wait()
}

func TestGoPoolClosedRejectsWork(t *testing.T) {
	p := NewGoPool(2, 2)
	p.Close()
	p.Close()

	if err := p.ScheduleTimeout(time.Second, func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("schedule after close = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPoolCollectsEveryResult(t *testing.T) {
	pool := NewWorkerPool[int, int](3, 16)
	pool.Start(func(job int) int { return job * job })

	for i := 1; i <= 10; i++ {
		pool.AddJob(i)
	}
	pool.Close()
	go pool.Wait()

	sum := 0
	for res := range pool.CollectResults() {
		sum += res
	}
	if sum != 385 {
		t.Fatalf("sum of squares = %d, want 385", sum)
	}
}
