package spatialindex

import (
	"sync"

	"github.com/ELMGHARU/detection-tracker/pkg/geo"

	"github.com/tidwall/rtree"
)

// SessionIndex keeps the last snapped position of every active navigation
// session in an r-tree so map displays can ask "which vehicles are inside
// this viewport" without walking the whole registry. It only serves display
// queries, tracking itself never reads it.
type SessionIndex struct {
	mu   sync.RWMutex
	tr   rtree.RTreeG[uint64]
	last map[uint64][2]float64 // session id -> (lon, lat)
}

func NewSessionIndex() *SessionIndex {
	return &SessionIndex{
		last: make(map[uint64][2]float64),
	}
}

// Upsert records the session's latest snapped position, replacing the
// previous entry when the session moved.
func (si *SessionIndex) Upsert(sessionID uint64, lat, lon float64) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if prev, ok := si.last[sessionID]; ok {
		si.tr.Delete(prev, prev, sessionID)
	}
	point := [2]float64{lon, lat}
	si.tr.Insert(point, point, sessionID)
	si.last[sessionID] = point
}

func (si *SessionIndex) Remove(sessionID uint64) {
	si.mu.Lock()
	defer si.mu.Unlock()

	prev, ok := si.last[sessionID]
	if !ok {
		return
	}
	si.tr.Delete(prev, prev, sessionID)
	delete(si.last, sessionID)
}

func (si *SessionIndex) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.last)
}

// SearchWithinRadius returns the sessions within radius (in km) of the query
// point. The bounding box comes from the 225/45 degree diagonal around the
// point, candidates are then refined against the true radius.
func (si *SessionIndex) SearchWithinRadius(qLat, qLon, radius float64) []uint64 {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	query := geo.NewCoordinate(qLat, qLon)

	si.mu.RLock()
	defer si.mu.RUnlock()

	results := make([]uint64, 0, 10)
	si.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, sessionID uint64) bool {
			candidate := geo.NewCoordinate(min[1], min[0])
			if geo.ApproxDistanceMeters(query, candidate) <= radius*1000.0 {
				results = append(results, sessionID)
			}
			return true
		})
	return results
}
