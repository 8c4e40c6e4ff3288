package tracker

import (
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
)

/*
SnapToRoute matches a raw gps fix onto the route polyline and returns the
matched route point. The scan starts at the cursor's last matched index and
only looks forward, so a route that passes the same intersection twice can
never pull the vehicle back to the earlier visit. Ties keep the earliest
index. The cursor is advanced to the chosen index before returning.

An empty route returns the raw position unchanged and leaves the cursor
alone.
*/
func SnapToRoute(raw geo.Coordinate, cursor *datastructure.TrackingCursor, route *datastructure.RoutePlan) geo.Coordinate {
	if route.IsEmpty() {
		return raw
	}

	start := cursor.GetLastIndex()
	if start >= route.NumPoints() {
		start = route.NumPoints() - 1
	}

	bestIndex := start
	bestDist := geo.DistanceMeters(raw, route.GetPoint(start))
	for i := start + 1; i < route.NumPoints(); i++ {
		d := geo.DistanceMeters(raw, route.GetPoint(i))
		if d < bestDist {
			bestDist = d
			bestIndex = i
		}
	}

	cursor.Advance(bestIndex)
	return route.GetPoint(bestIndex)
}

// RemainingRoute is the polyline suffix from the cursor's last matched index
// to the route end. The slice aliases the plan's backing array, callers must
// copy before publishing it.
func RemainingRoute(route *datastructure.RoutePlan, cursor *datastructure.TrackingCursor) []geo.Coordinate {
	if route.IsEmpty() {
		return nil
	}
	idx := cursor.GetLastIndex()
	if idx >= route.NumPoints() {
		idx = route.NumPoints() - 1
	}
	return route.GetPoints()[idx:]
}

// BearingFromRemaining is the travel heading in degrees, taken from the
// snapped position toward the next upcoming route point. ok is false when the
// remaining suffix is too short to define a heading, callers should then keep
// whatever bearing they last had.
func BearingFromRemaining(snapped geo.Coordinate, remaining []geo.Coordinate) (float64, bool) {
	if len(remaining) < 2 {
		return 0, false
	}
	next := remaining[1]
	return geo.BearingTo(snapped.GetLat(), snapped.GetLon(), next.GetLat(), next.GetLon()), true
}

// DistanceToDestinationMeters sums the road distance over the remaining
// polyline suffix. With no suffix left it falls back to the straight-line
// distance between the current position and the destination.
func DistanceToDestinationMeters(current geo.Coordinate, remaining []geo.Coordinate, destination geo.Coordinate) float64 {
	if len(remaining) == 0 {
		return geo.DistanceMeters(current, destination)
	}

	total := geo.DistanceMeters(current, remaining[0])
	for i := 0; i+1 < len(remaining); i++ {
		total += geo.DistanceMeters(remaining[i], remaining[i+1])
	}
	return total
}

// EstimatedTimeRemaining converts distance to a travel time using the
// reported speed, or fallbackSpeedMps when the receiver reports no usable
// speed.
func EstimatedTimeRemaining(distanceMeters, speedMps, fallbackSpeedMps float64) time.Duration {
	speed := speedMps
	if speed <= 0 {
		speed = fallbackSpeedMps
	}
	if speed <= 0 || distanceMeters <= 0 {
		return 0
	}
	return time.Duration(distanceMeters / speed * float64(time.Second))
}

/*
DetectManeuverAdvance decides whether the vehicle has reached a maneuver
further along the route. It scans the maneuver anchors from currentStepIndex
to the end, takes the nearest one, and advances only when that anchor is
within advanceRadiusMeters of the snapped position and sits strictly after
the current step. Like the polyline cursor, the step index never moves
backward, and loitering near the current step's own anchor re-announces
nothing.

Returns the (possibly unchanged) step index and whether an advance happened.
*/
func DetectManeuverAdvance(snapped geo.Coordinate, route *datastructure.RoutePlan, currentStepIndex int,
	advanceRadiusMeters float64) (int, bool) {
	if route.NumSteps() == 0 || currentStepIndex >= route.NumSteps() {
		return currentStepIndex, false
	}

	start := currentStepIndex
	if start < 0 {
		start = 0
	}

	nearestIndex := start
	nearestDist := geo.DistanceMeters(snapped, route.GetStep(start).GetLocation())
	for i := start + 1; i < route.NumSteps(); i++ {
		d := geo.DistanceMeters(snapped, route.GetStep(i).GetLocation())
		if d < nearestDist {
			nearestDist = d
			nearestIndex = i
		}
	}

	if nearestDist < advanceRadiusMeters && nearestIndex > currentStepIndex {
		return nearestIndex, true
	}
	return currentStepIndex, false
}
