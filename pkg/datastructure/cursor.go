package datastructure

// TrackingCursor remembers the last matched polyline index of a navigation
// session. The index never moves backward, which is what keeps a vehicle from
// snapping back onto an already-traversed loop of the route.
type TrackingCursor struct {
	lastIndex int
}

func NewTrackingCursor() *TrackingCursor {
	return &TrackingCursor{lastIndex: 0}
}

func (tc *TrackingCursor) GetLastIndex() int {
	return tc.lastIndex
}

// Advance moves the cursor forward. Smaller or equal indices are ignored.
func (tc *TrackingCursor) Advance(index int) {
	if index > tc.lastIndex {
		tc.lastIndex = index
	}
}

func (tc *TrackingCursor) Reset() {
	tc.lastIndex = 0
}
