package datastructure

import "github.com/ELMGHARU/detection-tracker/pkg/geo"

// NavigationTrack is the append-only trace of snapped positions accepted
// during one navigation session.
type NavigationTrack struct {
	points []geo.Coordinate
}

func NewNavigationTrack() *NavigationTrack {
	return &NavigationTrack{}
}

func (nt *NavigationTrack) Append(p geo.Coordinate) {
	nt.points = append(nt.points, p)
}

func (nt *NavigationTrack) Len() int {
	return len(nt.points)
}

// Snapshot copies the trace so callers can hold it across later appends.
func (nt *NavigationTrack) Snapshot() []geo.Coordinate {
	out := make([]geo.Coordinate, len(nt.points))
	copy(out, nt.points)
	return out
}

func (nt *NavigationTrack) Clear() {
	nt.points = nil
}
