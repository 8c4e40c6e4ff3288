package usecases

import (
	"context"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/engine"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/routeservice"
	"github.com/ELMGHARU/detection-tracker/pkg/util"
	"go.uber.org/zap"
)

type NavigationService struct {
	log      *zap.Logger
	engine   NavigationEngine
	geocoder Geocoder
}

func NewNavigationService(log *zap.Logger, engine NavigationEngine, geocoder Geocoder) *NavigationService {
	return &NavigationService{
		log:      log,
		engine:   engine,
		geocoder: geocoder,
	}
}

func (ns *NavigationService) StartNavigation(ctx context.Context, originLat, originLon,
	destinationLat, destinationLon float64) (uint64, navigator.Snapshot, error) {
	if !geo.IsValidLatLon(originLat, originLon) {
		return 0, navigator.Snapshot{}, util.WrapErrorf(nil, util.ErrBadParamInput,
			"origin (%f, %f) is not a valid coordinate", originLat, originLon)
	}
	if !geo.IsValidLatLon(destinationLat, destinationLon) {
		return 0, navigator.Snapshot{}, util.WrapErrorf(nil, util.ErrBadParamInput,
			"destination (%f, %f) is not a valid coordinate", destinationLat, destinationLon)
	}

	return ns.engine.StartNavigation(ctx,
		geo.NewCoordinate(originLat, originLon),
		geo.NewCoordinate(destinationLat, destinationLon))
}

// StartNavigationToPlace geocodes a free-text destination and starts
// navigating to the best match.
func (ns *NavigationService) StartNavigationToPlace(ctx context.Context, originLat, originLon float64,
	query string) (uint64, navigator.Snapshot, error) {
	if !geo.IsValidLatLon(originLat, originLon) {
		return 0, navigator.Snapshot{}, util.WrapErrorf(nil, util.ErrBadParamInput,
			"origin (%f, %f) is not a valid coordinate", originLat, originLon)
	}

	places, err := ns.geocoder.Search(ctx, query, 1)
	if err != nil {
		return 0, navigator.Snapshot{}, err
	}
	if len(places) == 0 {
		return 0, navigator.Snapshot{}, util.WrapErrorf(nil, util.ErrNotFound,
			"no place found for %q", query)
	}

	destination := places[0].GetLocation()
	ns.log.Info("destination resolved",
		zap.String("query", query), zap.String("place", places[0].GetName()),
		zap.Float64("lat", destination.GetLat()), zap.Float64("lon", destination.GetLon()))

	return ns.engine.StartNavigation(ctx, geo.NewCoordinate(originLat, originLon), destination)
}

func (ns *NavigationService) PushPosition(id uint64, lat, lon, speedMps float64, at time.Time) (navigator.Snapshot, error) {
	fix := datastructure.NewGPSPoint(lat, lon, at, speedMps)
	return ns.engine.PushPosition(id, fix)
}

func (ns *NavigationService) GetSnapshot(id uint64) (navigator.Snapshot, error) {
	return ns.engine.GetSnapshot(id)
}

func (ns *NavigationService) StopNavigation(id uint64) error {
	return ns.engine.StopNavigation(id)
}

func (ns *NavigationService) SessionsWithinRadius(lat, lon, radiusKM float64) []engine.SessionView {
	return ns.engine.SessionsWithinRadius(lat, lon, radiusKM)
}

func (ns *NavigationService) Geocode(ctx context.Context, query string, limit int) ([]routeservice.Place, error) {
	return ns.geocoder.Search(ctx, query, limit)
}
