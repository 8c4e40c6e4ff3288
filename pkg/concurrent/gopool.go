package concurrent

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrScheduleTimeout = errors.New("schedule error: goroutine pool timed out")
	ErrPoolClosed      = errors.New("schedule error: goroutine pool is closed")
)

/*
GoPool is a bounded goroutine pool for connection handling, modeled after the
pool in https://sergey.kamardin.org/articles/million-websockets-and-go/. At
most cap(sem) goroutines run at once, at most cap(work) tasks wait in the
queue. Workers exit when the pool closes or when the queue drains and another
task spawns a fresh worker instead.
*/
type GoPool struct {
	sem  chan struct{}
	work chan func()
	done chan struct{}
	once sync.Once
}

func NewGoPool(size, queue int) *GoPool {
	if size <= 0 {
		size = 1
	}
	return &GoPool{
		sem:  make(chan struct{}, size),
		work: make(chan func(), queue),
		done: make(chan struct{}),
	}
}

// Spawn pre-starts up to n idle workers so the first connections do not pay
// the goroutine startup cost.
func (p *GoPool) Spawn(n int) {
	for i := 0; i < n; i++ {
		select {
		case p.sem <- struct{}{}:
			go p.worker(func() {})
		default:
			return
		}
	}
}

// Schedule blocks until a worker or a queue slot takes the task.
func (p *GoPool) Schedule(task func()) {
	_ = p.schedule(nil, task)
}

// ScheduleTimeout gives up with ErrScheduleTimeout when no worker or queue
// slot frees up within the timeout.
func (p *GoPool) ScheduleTimeout(timeout time.Duration, task func()) error {
	return p.schedule(time.After(timeout), task)
}

func (p *GoPool) schedule(timeout <-chan time.Time, task func()) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}

	select {
	case <-p.done:
		return ErrPoolClosed
	case <-timeout:
		return ErrScheduleTimeout
	case p.work <- task:
		return nil
	case p.sem <- struct{}{}:
		go p.worker(task)
		return nil
	}
}

func (p *GoPool) worker(task func()) {
	defer func() { <-p.sem }()

	task()
	for {
		select {
		case <-p.done:
			return
		case task = <-p.work:
			task()
		}
	}
}

// Close stops accepting tasks and lets the workers drain. Idempotent.
func (p *GoPool) Close() {
	p.once.Do(func() {
		close(p.done)
	})
}
