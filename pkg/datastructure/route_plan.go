package datastructure

import "github.com/ELMGHARU/detection-tracker/pkg/geo"

// ManeuverStep is one guidance point on a route: the text to announce, the
// coordinate the maneuver is anchored to, and the travel distance the step
// covers.
type ManeuverStep struct {
	instruction    string
	location       geo.Coordinate
	distanceMeters float64
}

func NewManeuverStep(instruction string, location geo.Coordinate, distanceMeters float64) ManeuverStep {
	return ManeuverStep{
		instruction:    instruction,
		location:       location,
		distanceMeters: distanceMeters,
	}
}

func (m ManeuverStep) GetInstruction() string {
	return m.instruction
}

func (m ManeuverStep) GetLocation() geo.Coordinate {
	return m.location
}

func (m ManeuverStep) GetDistanceMeters() float64 {
	return m.distanceMeters
}

// RoutePlan is an immutable planned route: the polyline the vehicle should
// follow plus the ordered maneuver steps along it. The last polyline point is
// the destination.
type RoutePlan struct {
	points []geo.Coordinate
	steps  []ManeuverStep
}

func NewRoutePlan(points []geo.Coordinate, steps []ManeuverStep) *RoutePlan {
	rp := &RoutePlan{
		points: make([]geo.Coordinate, len(points)),
		steps:  make([]ManeuverStep, len(steps)),
	}
	copy(rp.points, points)
	copy(rp.steps, steps)
	return rp
}

func NewEmptyRoutePlan() *RoutePlan {
	return &RoutePlan{}
}

func (rp *RoutePlan) IsEmpty() bool {
	return len(rp.points) == 0
}

func (rp *RoutePlan) NumPoints() int {
	return len(rp.points)
}

func (rp *RoutePlan) GetPoint(i int) geo.Coordinate {
	return rp.points[i]
}

// GetPoints returns the backing polyline. Callers must treat it as read-only.
func (rp *RoutePlan) GetPoints() []geo.Coordinate {
	return rp.points
}

func (rp *RoutePlan) NumSteps() int {
	return len(rp.steps)
}

func (rp *RoutePlan) GetStep(i int) ManeuverStep {
	return rp.steps[i]
}

func (rp *RoutePlan) GetSteps() []ManeuverStep {
	return rp.steps
}

// GetDestination is the final polyline point. ok is false for an empty plan.
func (rp *RoutePlan) GetDestination() (geo.Coordinate, bool) {
	if len(rp.points) == 0 {
		return geo.Coordinate{}, false
	}
	return rp.points[len(rp.points)-1], true
}
