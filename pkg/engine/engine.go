package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/spatialindex"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RouteProvider plans a route between two coordinates. An empty plan means
// "no route", errors are reserved for transport failures.
type RouteProvider interface {
	FetchRoute(ctx context.Context, origin, destination geo.Coordinate) (*datastructure.RoutePlan, error)
}

type sessionEntry struct {
	mu         sync.Mutex
	session    *navigator.Session
	lastUpdate time.Time
}

// SessionView pairs a session id with its latest snapshot, the shape
// viewport queries answer with.
type SessionView struct {
	id       uint64
	snapshot navigator.Snapshot
}

func (sv SessionView) GetID() uint64 {
	return sv.id
}

func (sv SessionView) GetSnapshot() navigator.Snapshot {
	return sv.snapshot
}

/*
Engine is the multi-session navigation registry: it plans routes through the
route provider, runs one navigator session per vehicle, serializes position
delivery per session, and keeps the viewport index in sync with every
accepted fix. A cron sweeper evicts sessions that stopped sending positions.
*/
type Engine struct {
	log    *zap.Logger
	routes RouteProvider
	index  *spatialindex.SessionIndex

	minMovementMeters   float64
	fallbackSpeedMps    float64
	advanceRadiusMeters float64
	staleAfter          time.Duration

	mu       sync.RWMutex
	seq      uint64
	sessions map[uint64]*sessionEntry

	cron *cron.Cron
}

func NewEngine(log *zap.Logger, routes RouteProvider, minMovementMeters, fallbackSpeedMps,
	advanceRadiusMeters float64, staleAfter time.Duration) *Engine {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &Engine{
		log:                 log,
		routes:              routes,
		index:               spatialindex.NewSessionIndex(),
		minMovementMeters:   minMovementMeters,
		fallbackSpeedMps:    fallbackSpeedMps,
		advanceRadiusMeters: advanceRadiusMeters,
		staleAfter:          staleAfter,
		sessions:            make(map[uint64]*sessionEntry),
	}
}

// StartNavigation plans origin to destination and opens a session for the
// route. Fails with a no-route error when the planner finds nothing.
func (e *Engine) StartNavigation(ctx context.Context, origin, destination geo.Coordinate) (uint64, navigator.Snapshot, error) {
	plan, err := e.routes.FetchRoute(ctx, origin, destination)
	if err != nil {
		return 0, navigator.Snapshot{}, err
	}
	if plan == nil || plan.IsEmpty() {
		return 0, navigator.Snapshot{}, util.WrapErrorf(nil, util.ErrNoRoute,
			"no route from (%f, %f) to (%f, %f)",
			origin.GetLat(), origin.GetLon(), destination.GetLat(), destination.GetLon())
	}
	return e.StartNavigationWithPlan(plan)
}

// StartNavigationWithPlan opens a session for an already-built route plan,
// used by replay tooling and tests.
func (e *Engine) StartNavigationWithPlan(plan *datastructure.RoutePlan) (uint64, navigator.Snapshot, error) {
	sess := navigator.NewSession(e.log, e.minMovementMeters, e.fallbackSpeedMps, e.advanceRadiusMeters)
	if err := sess.Start(plan); err != nil {
		return 0, navigator.Snapshot{}, err
	}

	e.mu.Lock()
	e.seq++
	id := e.seq
	e.sessions[id] = &sessionEntry{session: sess, lastUpdate: time.Now()}
	e.mu.Unlock()

	snap := sess.Snapshot()
	pos := snap.GetSnappedPosition()
	e.index.Upsert(id, pos.GetLat(), pos.GetLon())

	e.log.Info("navigation session opened", zap.Uint64("session_id", id))
	return id, snap, nil
}

func (e *Engine) lookup(id uint64) (*sessionEntry, error) {
	e.mu.RLock()
	entry, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "navigation session %d not found", id)
	}
	return entry, nil
}

// PushPosition delivers one fix into a session. Delivery is serialized per
// session, concurrent callers for the same id queue up here.
func (e *Engine) PushPosition(id uint64, fix *datastructure.GPSPoint) (navigator.Snapshot, error) {
	entry, err := e.lookup(id)
	if err != nil {
		return navigator.Snapshot{}, err
	}

	entry.mu.Lock()
	entry.session.OnPositionUpdate(fix)
	entry.lastUpdate = time.Now()
	snap := entry.session.Snapshot()
	entry.mu.Unlock()

	pos := snap.GetSnappedPosition()
	e.index.Upsert(id, pos.GetLat(), pos.GetLon())
	return snap, nil
}

func (e *Engine) GetSnapshot(id uint64) (navigator.Snapshot, error) {
	entry, err := e.lookup(id)
	if err != nil {
		return navigator.Snapshot{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Snapshot(), nil
}

// StopNavigation stops the session and removes it from the registry and the
// viewport index.
func (e *Engine) StopNavigation(id uint64) error {
	entry, err := e.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()
	e.index.Remove(id)

	entry.mu.Lock()
	entry.session.Stop()
	entry.mu.Unlock()

	e.log.Info("navigation session closed", zap.Uint64("session_id", id))
	return nil
}

func (e *Engine) ActiveSessions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// SessionsWithinRadius answers a viewport query: every active session whose
// last snapped position sits within radius (km) of the query point.
func (e *Engine) SessionsWithinRadius(lat, lon, radiusKM float64) []SessionView {
	ids := e.index.SearchWithinRadius(lat, lon, radiusKM)

	views := make([]SessionView, 0, len(ids))
	for _, id := range ids {
		snap, err := e.GetSnapshot(id)
		if err != nil {
			continue
		}
		views = append(views, SessionView{id: id, snapshot: snap})
	}
	return views
}

// StartSweeper schedules stale-session eviction, schedule is a cron spec
// with a seconds field, e.g. "0 */5 * * * *".
func (e *Engine) StartSweeper(schedule string) error {
	if e.cron != nil {
		return util.WrapErrorf(nil, util.ErrInvalidState, "sweeper already running")
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(schedule, e.sweepStale); err != nil {
		return util.WrapErrorf(err, util.ErrBadParamInput, "invalid sweeper schedule %q", schedule)
	}
	c.Start()
	e.cron = c

	e.log.Info("stale-session sweeper started",
		zap.String("schedule", schedule), zap.Duration("stale_after", e.staleAfter))
	return nil
}

func (e *Engine) sweepStale() {
	cutoff := time.Now().Add(-e.staleAfter)

	e.mu.RLock()
	stale := make([]uint64, 0)
	for id, entry := range e.sessions {
		entry.mu.Lock()
		last := entry.lastUpdate
		entry.mu.Unlock()
		if last.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	e.mu.RUnlock()

	for _, id := range stale {
		if err := e.StopNavigation(id); err == nil {
			e.log.Info("evicted stale navigation session", zap.Uint64("session_id", id))
		}
	}
}

// Close stops the sweeper and every remaining session.
func (e *Engine) Close() {
	if e.cron != nil {
		<-e.cron.Stop().Done()
		e.cron = nil
	}

	e.mu.Lock()
	ids := make([]uint64, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		_ = e.StopNavigation(id)
	}
}
