package controllers

import (
	"context"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/engine"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/routeservice"
)

type NavigationService interface {
	StartNavigation(ctx context.Context, originLat, originLon, destinationLat, destinationLon float64) (uint64, navigator.Snapshot, error)
	StartNavigationToPlace(ctx context.Context, originLat, originLon float64, query string) (uint64, navigator.Snapshot, error)
	PushPosition(id uint64, lat, lon, speedMps float64, at time.Time) (navigator.Snapshot, error)
	GetSnapshot(id uint64) (navigator.Snapshot, error)
	StopNavigation(id uint64) error
	SessionsWithinRadius(lat, lon, radiusKM float64) []engine.SessionView
	Geocode(ctx context.Context, query string, limit int) ([]routeservice.Place, error)
}
