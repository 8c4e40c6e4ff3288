package positionfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptProvider struct {
	updates      chan Update
	streamErr    error
	lastKnown    *datastructure.GPSPoint
	lastKnownErr error
	current      *datastructure.GPSPoint
	currentErr   error
}

func (sp *scriptProvider) Stream(_ context.Context) (<-chan Update, error) {
	if sp.streamErr != nil {
		return nil, sp.streamErr
	}
	return sp.updates, nil
}

func (sp *scriptProvider) LastKnown(_ context.Context) (*datastructure.GPSPoint, error) {
	return sp.lastKnown, sp.lastKnownErr
}

func (sp *scriptProvider) Current(_ context.Context) (*datastructure.GPSPoint, error) {
	return sp.current, sp.currentErr
}

func someFix(lat, lon float64) *datastructure.GPSPoint {
	return datastructure.NewGPSPoint(lat, lon, time.Now(), 1.5)
}

func collector(buf int) (Engine, <-chan *datastructure.GPSPoint) {
	ch := make(chan *datastructure.GPSPoint, buf)
	return EngineFunc(func(fix *datastructure.GPSPoint) { ch <- fix }), ch
}

func waitFix(t *testing.T, ch <-chan *datastructure.GPSPoint) *datastructure.GPSPoint {
	t.Helper()
	select {
	case fix := <-ch:
		return fix
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fix")
		return nil
	}
}

func TestFeedDeliversFixesInOrder(t *testing.T) {
	sp := &scriptProvider{updates: make(chan Update, 4)}
	engine, got := collector(4)

	feed := NewFeed(zap.NewNop(), sp, time.Second, nil)
	require.NoError(t, feed.Start(context.Background(), engine))
	defer feed.Stop()

	first := someFix(0, 0.001)
	second := someFix(0, 0.002)
	sp.updates <- Update{Fix: first}
	sp.updates <- Update{Fix: second}

	require.Same(t, first, waitFix(t, got))
	require.Same(t, second, waitFix(t, got))
}

func TestFeedStartTwiceFails(t *testing.T) {
	sp := &scriptProvider{updates: make(chan Update)}
	engine, _ := collector(1)

	feed := NewFeed(zap.NewNop(), sp, time.Second, nil)
	require.NoError(t, feed.Start(context.Background(), engine))
	defer feed.Stop()

	err := feed.Start(context.Background(), engine)
	require.Error(t, err)

	var uerr *util.Error
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, util.ErrInvalidState, uerr.Code())
}

func TestFeedStartSubscribeFailure(t *testing.T) {
	sp := &scriptProvider{streamErr: errors.New("gps hardware gone")}
	engine, _ := collector(1)

	feed := NewFeed(zap.NewNop(), sp, time.Second, nil)
	err := feed.Start(context.Background(), engine)
	require.Error(t, err)

	var uerr *util.Error
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, util.ErrPositionUnavailable, uerr.Code())
}

func TestFeedDegradedStreamFallsBackToLastKnown(t *testing.T) {
	cached := someFix(0, 0.005)
	sp := &scriptProvider{
		updates:   make(chan Update, 4),
		lastKnown: cached,
	}
	engine, got := collector(4)

	feed := NewFeed(zap.NewNop(), sp, time.Second, nil)
	require.NoError(t, feed.Start(context.Background(), engine))
	defer feed.Stop()

	sp.updates <- Update{Err: errors.New("signal lost")}
	require.Same(t, cached, waitFix(t, got))

	// the subscription survived the error
	next := someFix(0, 0.006)
	sp.updates <- Update{Fix: next}
	require.Same(t, next, waitFix(t, got))
}

func TestFeedDegradedStreamFallsBackToFreshFix(t *testing.T) {
	fresh := someFix(0, 0.007)
	sp := &scriptProvider{
		updates:      make(chan Update, 4),
		lastKnownErr: errors.New("nothing cached"),
		current:      fresh,
	}
	engine, got := collector(4)

	feed := NewFeed(zap.NewNop(), sp, time.Second, nil)
	require.NoError(t, feed.Start(context.Background(), engine))
	defer feed.Stop()

	sp.updates <- Update{Err: errors.New("signal lost")}
	require.Same(t, fresh, waitFix(t, got))
}

func TestFeedNotifiesWhenNoFallbackAvailable(t *testing.T) {
	sp := &scriptProvider{
		updates:      make(chan Update, 4),
		lastKnownErr: errors.New("nothing cached"),
		currentErr:   errors.New("still no signal"),
	}
	engine, got := collector(4)

	notified := make(chan error, 1)
	feed := NewFeed(zap.NewNop(), sp, 50*time.Millisecond, func(err error) { notified <- err })
	require.NoError(t, feed.Start(context.Background(), engine))
	defer feed.Stop()

	sp.updates <- Update{Err: errors.New("signal lost")}

	select {
	case err := <-notified:
		var uerr *util.Error
		require.True(t, errors.As(err, &uerr))
		require.Equal(t, util.ErrPositionUnavailable, uerr.Code())
	case <-time.After(2 * time.Second):
		t.Fatal("expected a degraded-feed notification")
	}

	// still not fatal, later fixes flow through
	after := someFix(0, 0.008)
	sp.updates <- Update{Fix: after}
	require.Same(t, after, waitFix(t, got))
}

func TestFeedStopIsSynchronous(t *testing.T) {
	sp := &scriptProvider{updates: make(chan Update, 4)}
	engine, got := collector(4)

	feed := NewFeed(zap.NewNop(), sp, time.Second, nil)
	require.NoError(t, feed.Start(context.Background(), engine))

	feed.Stop()

	// nothing sent after Stop returns may reach the engine
	select {
	case sp.updates <- Update{Fix: someFix(0, 0.009)}:
	default:
	}
	select {
	case fix := <-got:
		t.Fatalf("fix delivered after Stop: %+v", fix)
	case <-time.After(100 * time.Millisecond):
	}

	// idempotent
	feed.Stop()
}
