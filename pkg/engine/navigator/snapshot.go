package navigator

import (
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/geo"
)

// Snapshot is a read-only view of a navigation session taken after an
// accepted update. Every slice is copied, holding a snapshot never observes
// later updates.
type Snapshot struct {
	state                       State
	bearingDegrees              float64
	distanceToDestinationMeters float64
	estimatedTimeRemaining      time.Duration
	nextInstruction             string
	currentStepIndex            int
	snappedPosition             geo.Coordinate
	track                       []geo.Coordinate
	remainingRoute              []geo.Coordinate
	updatedAt                   time.Time
}

func (s Snapshot) GetState() State {
	return s.state
}

func (s Snapshot) GetBearingDegrees() float64 {
	return s.bearingDegrees
}

func (s Snapshot) GetDistanceToDestinationMeters() float64 {
	return s.distanceToDestinationMeters
}

func (s Snapshot) GetEstimatedTimeRemaining() time.Duration {
	return s.estimatedTimeRemaining
}

func (s Snapshot) GetNextInstruction() string {
	return s.nextInstruction
}

func (s Snapshot) GetCurrentStepIndex() int {
	return s.currentStepIndex
}

func (s Snapshot) GetSnappedPosition() geo.Coordinate {
	return s.snappedPosition
}

func (s Snapshot) GetTrack() []geo.Coordinate {
	return s.track
}

func (s Snapshot) GetRemainingRoute() []geo.Coordinate {
	return s.remainingRoute
}

func (s Snapshot) GetUpdatedAt() time.Time {
	return s.updatedAt
}
