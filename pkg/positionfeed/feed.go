package positionfeed

import (
	"context"
	"sync"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"go.uber.org/zap"
)

// DefaultFixTimeout bounds the fresh-fix fetch used when the stream degrades.
const DefaultFixTimeout = 30 * time.Second

/*
Feed pumps a provider's position stream into a navigation engine. Updates are
delivered one at a time from a single goroutine, so the engine never sees
concurrent calls.

A transient stream error does not tear the subscription down. The feed runs
the degraded path instead: try the provider's last known fix, then one fresh
fix bounded by fixTimeout, and only if both fail notify the caller. The
stream keeps being consumed afterwards.
*/
type Feed struct {
	log        *zap.Logger
	provider   Provider
	fixTimeout time.Duration
	notify     Notifier

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFeed(log *zap.Logger, provider Provider, fixTimeout time.Duration, notify Notifier) *Feed {
	if fixTimeout <= 0 {
		fixTimeout = DefaultFixTimeout
	}
	return &Feed{
		log:        log,
		provider:   provider,
		fixTimeout: fixTimeout,
		notify:     notify,
	}
}

// Start subscribes to the provider and begins delivering fixes to the
// engine. Fails when the feed is already running or the subscription cannot
// be opened.
func (f *Feed) Start(ctx context.Context, engine Engine) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return util.WrapErrorf(nil, util.ErrInvalidState, "position feed already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	updates, err := f.provider.Stream(runCtx)
	if err != nil {
		cancel()
		return util.WrapErrorf(err, util.ErrPositionUnavailable, "subscribe to position stream")
	}

	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(runCtx, updates, engine, f.done)
	return nil
}

// Stop cancels the subscription and waits for in-flight delivery to finish.
// When Stop returns no further fix reaches the engine. Stopping a feed that
// is not running is a no-op.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done exposes the delivery loop's exit: the channel closes when the current
// run stops, either through Stop or because the provider ended its stream.
// Nil when the feed has not been started.
func (f *Feed) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *Feed) run(ctx context.Context, updates <-chan Update, engine Engine, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				f.log.Info("position stream ended")
				return
			}
			if u.Err != nil {
				f.recoverDegraded(ctx, engine, u.Err)
				continue
			}
			if u.Fix != nil {
				engine.OnPositionUpdate(u.Fix)
			}
		}
	}
}

// recoverDegraded is the one-shot fallback chain for a degraded stream.
func (f *Feed) recoverDegraded(ctx context.Context, engine Engine, cause error) {
	if util.StopConcurrentOperation(ctx) {
		return
	}

	f.log.Warn("position stream degraded, trying fallback fix", zap.Error(cause))

	if fix, err := f.provider.LastKnown(ctx); err == nil && fix != nil {
		engine.OnPositionUpdate(fix)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.fixTimeout)
	defer cancel()
	if fix, err := f.provider.Current(fetchCtx); err == nil && fix != nil {
		engine.OnPositionUpdate(fix)
		return
	}

	err := util.WrapErrorf(cause, util.ErrPositionUnavailable, "no position fix available")
	f.log.Warn("fallback fix unavailable", zap.Error(err))
	if f.notify != nil {
		f.notify(err)
	}
}

var _ Engine = (*sessionFunc)(nil)

// sessionFunc adapts a bare function to the Engine interface, used by tests
// and the replay tool.
type sessionFunc func(fix *datastructure.GPSPoint)

func (fn sessionFunc) OnPositionUpdate(fix *datastructure.GPSPoint) { fn(fix) }

// EngineFunc wraps fn into an Engine.
func EngineFunc(fn func(fix *datastructure.GPSPoint)) Engine {
	return sessionFunc(fn)
}
