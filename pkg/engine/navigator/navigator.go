package navigator

import (
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/tracker"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"go.uber.org/zap"
)

type State uint8

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	default:
		return "idle"
	}
}

const (
	DefaultMinMovementMeters   = 5.0
	DefaultFallbackSpeedMps    = 5.0
	DefaultAdvanceRadiusMeters = 30.0

	vehicularFallbackSpeedMps = 50.0 / 3.6 // 50 km/h
)

// FallbackSpeedForProfile maps a travel profile name to the speed used for
// eta estimates when the receiver reports no speed. Unknown profiles get the
// pedestrian speed.
func FallbackSpeedForProfile(profile string) float64 {
	switch profile {
	case "vehicular", "driving", "car":
		return vehicularFallbackSpeedMps
	default:
		return DefaultFallbackSpeedMps
	}
}

/*
Session is one turn-by-turn navigation run over a single route plan. It is
either idle or actively tracking. All tracking state (polyline cursor,
snapped trace, bearing, remaining distance, eta, upcoming maneuver) lives
here and is recomputed on every accepted position update.

A session is not safe for concurrent use. Callers that deliver fixes from
multiple goroutines must serialize them.
*/
type Session struct {
	log *zap.Logger

	state            State
	route            *datastructure.RoutePlan
	cursor           *datastructure.TrackingCursor
	track            *datastructure.NavigationTrack
	currentStepIndex int
	nextInstruction  string

	bearingDegrees              float64
	distanceToDestinationMeters float64
	estimatedTimeRemaining      time.Duration
	snappedPosition             geo.Coordinate
	lastAcceptedRaw             *geo.Coordinate
	updatedAt                   time.Time

	minMovementMeters   float64
	fallbackSpeedMps    float64
	advanceRadiusMeters float64

	listener func(Snapshot)
}

func NewSession(log *zap.Logger, minMovementMeters, fallbackSpeedMps, advanceRadiusMeters float64) *Session {
	if minMovementMeters <= 0 {
		minMovementMeters = DefaultMinMovementMeters
	}
	if fallbackSpeedMps <= 0 {
		fallbackSpeedMps = DefaultFallbackSpeedMps
	}
	if advanceRadiusMeters <= 0 {
		advanceRadiusMeters = DefaultAdvanceRadiusMeters
	}
	return &Session{
		log:                 log,
		state:               Idle,
		route:               datastructure.NewEmptyRoutePlan(),
		cursor:              datastructure.NewTrackingCursor(),
		track:               datastructure.NewNavigationTrack(),
		minMovementMeters:   minMovementMeters,
		fallbackSpeedMps:    fallbackSpeedMps,
		advanceRadiusMeters: advanceRadiusMeters,
	}
}

// SetSnapshotListener registers the callback invoked after every accepted
// update, and on start/stop transitions.
func (s *Session) SetSnapshotListener(fn func(Snapshot)) {
	s.listener = fn
}

func (s *Session) GetState() State {
	return s.state
}

// Start begins tracking the given route. Starting the route that is already
// being tracked is a no-op, starting a different route while active fails,
// the caller has to stop first.
func (s *Session) Start(route *datastructure.RoutePlan) error {
	if route == nil || route.IsEmpty() {
		return util.WrapErrorf(nil, util.ErrNoRoute, "cannot start navigation without a route")
	}
	if s.state == Active {
		if s.route == route {
			return nil
		}
		return util.WrapErrorf(nil, util.ErrInvalidState,
			"navigation already active, stop the current session first")
	}

	s.state = Active
	s.route = route
	s.cursor = datastructure.NewTrackingCursor()
	s.track = datastructure.NewNavigationTrack()
	s.currentStepIndex = 0
	s.nextInstruction = ""
	s.lastAcceptedRaw = nil
	s.updatedAt = time.Now()

	start := route.GetPoint(0)
	s.snappedPosition = start
	remaining := tracker.RemainingRoute(route, s.cursor)
	if bearing, ok := tracker.BearingFromRemaining(start, remaining); ok {
		s.bearingDegrees = bearing
	} else {
		s.bearingDegrees = 0
	}
	dest, _ := route.GetDestination()
	s.distanceToDestinationMeters = tracker.DistanceToDestinationMeters(start, remaining, dest)
	s.estimatedTimeRemaining = tracker.EstimatedTimeRemaining(s.distanceToDestinationMeters, 0, s.fallbackSpeedMps)

	s.log.Info("navigation started",
		zap.Int("route_points", route.NumPoints()),
		zap.Int("maneuver_steps", route.NumSteps()),
		zap.Float64("route_distance_meters", s.distanceToDestinationMeters))

	s.publish()
	return nil
}

// Stop ends the active session and resets every derived tracking value.
// Stopping an idle session is a no-op.
func (s *Session) Stop() {
	if s.state == Idle {
		return
	}

	s.state = Idle
	s.route = datastructure.NewEmptyRoutePlan()
	s.cursor.Reset()
	s.track.Clear()
	s.currentStepIndex = 0
	s.nextInstruction = ""
	s.bearingDegrees = 0
	s.distanceToDestinationMeters = 0
	s.estimatedTimeRemaining = 0
	s.snappedPosition = geo.Coordinate{}
	s.lastAcceptedRaw = nil
	s.updatedAt = time.Now()

	s.log.Info("navigation stopped")
	s.publish()
}

/*
OnPositionUpdate feeds one gps fix through the tracking pipeline: movement
filter, forward snap onto the polyline, progress recomputation, trace append
and maneuver-advance detection. Fixes arriving while idle, fixes with
out-of-range coordinates and fixes that moved less than the movement
threshold are dropped without touching any state.
*/
func (s *Session) OnPositionUpdate(fix *datastructure.GPSPoint) {
	if s.state != Active || s.route.IsEmpty() {
		return
	}

	raw := fix.ToCoordinate()
	if !geo.IsValidLatLon(raw.GetLat(), raw.GetLon()) {
		s.log.Warn("dropping fix with out-of-range coordinates",
			zap.Float64("lat", raw.GetLat()), zap.Float64("lon", raw.GetLon()))
		return
	}

	if s.lastAcceptedRaw != nil &&
		geo.DistanceMeters(*s.lastAcceptedRaw, raw) < s.minMovementMeters {
		return
	}
	s.lastAcceptedRaw = &raw

	snapped := tracker.SnapToRoute(raw, s.cursor, s.route)
	remaining := tracker.RemainingRoute(s.route, s.cursor)

	if bearing, ok := tracker.BearingFromRemaining(snapped, remaining); ok {
		s.bearingDegrees = bearing
	}

	dest, _ := s.route.GetDestination()
	s.distanceToDestinationMeters = tracker.DistanceToDestinationMeters(snapped, remaining, dest)
	s.estimatedTimeRemaining = tracker.EstimatedTimeRemaining(
		s.distanceToDestinationMeters, fix.Speed(), s.fallbackSpeedMps)

	s.snappedPosition = snapped
	s.track.Append(snapped)

	if idx, advanced := tracker.DetectManeuverAdvance(snapped, s.route, s.currentStepIndex,
		s.advanceRadiusMeters); advanced {
		s.currentStepIndex = idx
		s.nextInstruction = s.route.GetStep(idx).GetInstruction()
		s.log.Info("maneuver advanced",
			zap.Int("step_index", idx),
			zap.String("instruction", s.nextInstruction))
	}

	s.updatedAt = time.Now()
	s.publish()
}

// Snapshot captures the current session state. Safe to hold, the track and
// remaining-route slices are copies.
func (s *Session) Snapshot() Snapshot {
	remaining := tracker.RemainingRoute(s.route, s.cursor)
	remainingCopy := make([]geo.Coordinate, len(remaining))
	copy(remainingCopy, remaining)

	return Snapshot{
		state:                       s.state,
		bearingDegrees:              s.bearingDegrees,
		distanceToDestinationMeters: s.distanceToDestinationMeters,
		estimatedTimeRemaining:      s.estimatedTimeRemaining,
		nextInstruction:             s.nextInstruction,
		currentStepIndex:            s.currentStepIndex,
		snappedPosition:             s.snappedPosition,
		track:                       s.track.Snapshot(),
		remainingRoute:              remainingCopy,
		updatedAt:                   s.updatedAt,
	}
}

func (s *Session) publish() {
	if s.listener != nil {
		s.listener(s.Snapshot())
	}
}
