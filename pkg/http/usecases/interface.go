package usecases

import (
	"context"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/engine"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/routeservice"
)

type NavigationEngine interface {
	StartNavigation(ctx context.Context, origin, destination geo.Coordinate) (uint64, navigator.Snapshot, error)
	PushPosition(id uint64, fix *datastructure.GPSPoint) (navigator.Snapshot, error)
	GetSnapshot(id uint64) (navigator.Snapshot, error)
	StopNavigation(id uint64) error
	SessionsWithinRadius(lat, lon, radiusKM float64) []engine.SessionView
}

type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]routeservice.Place, error)
}
