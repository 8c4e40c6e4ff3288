package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/engine"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/routeservice"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	lastOrigin      geo.Coordinate
	lastDestination geo.Coordinate
	lastFix         *datastructure.GPSPoint
}

func (f *fakeEngine) StartNavigation(_ context.Context, origin, destination geo.Coordinate) (uint64, navigator.Snapshot, error) {
	f.lastOrigin, f.lastDestination = origin, destination
	return 1, navigator.Snapshot{}, nil
}

func (f *fakeEngine) PushPosition(_ uint64, fix *datastructure.GPSPoint) (navigator.Snapshot, error) {
	f.lastFix = fix
	return navigator.Snapshot{}, nil
}

func (f *fakeEngine) GetSnapshot(_ uint64) (navigator.Snapshot, error) {
	return navigator.Snapshot{}, nil
}

func (f *fakeEngine) StopNavigation(_ uint64) error {
	return nil
}

func (f *fakeEngine) SessionsWithinRadius(_, _, _ float64) []engine.SessionView {
	return nil
}

type fakeGeocoder struct {
	places []routeservice.Place
	err    error
	query  string
}

func (f *fakeGeocoder) Search(_ context.Context, query string, _ int) ([]routeservice.Place, error) {
	f.query = query
	return f.places, f.err
}

func errCode(t *testing.T, err error) error {
	t.Helper()
	var domainErr *util.Error
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code()
}

func TestNavigationServiceRejectsInvalidCoordinates(t *testing.T) {
	svc := NewNavigationService(zap.NewNop(), &fakeEngine{}, &fakeGeocoder{})

	_, _, err := svc.StartNavigation(context.Background(), 95, 110, -7.79, 110.36)
	require.Equal(t, util.ErrBadParamInput, errCode(t, err))

	_, _, err = svc.StartNavigation(context.Background(), -7.78, 110.36, -7.79, 200)
	require.Equal(t, util.ErrBadParamInput, errCode(t, err))
}

func TestNavigationServicePassesCoordinatesThrough(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewNavigationService(zap.NewNop(), eng, &fakeGeocoder{})

	_, _, err := svc.StartNavigation(context.Background(), -7.78, 110.36, -7.79, 110.37)
	require.NoError(t, err)
	require.Equal(t, geo.NewCoordinate(-7.78, 110.36), eng.lastOrigin)
	require.Equal(t, geo.NewCoordinate(-7.79, 110.37), eng.lastDestination)
}

func TestNavigationServiceStartToPlace(t *testing.T) {
	eng := &fakeEngine{}
	geocoder := &fakeGeocoder{places: []routeservice.Place{
		routeservice.NewPlace("Stasiun Tugu", geo.NewCoordinate(-7.7891, 110.3633)),
	}}
	svc := NewNavigationService(zap.NewNop(), eng, geocoder)

	_, _, err := svc.StartNavigationToPlace(context.Background(), -7.78, 110.36, "stasiun tugu")
	require.NoError(t, err)
	require.Equal(t, "stasiun tugu", geocoder.query)
	require.Equal(t, geo.NewCoordinate(-7.7891, 110.3633), eng.lastDestination)
}

func TestNavigationServiceStartToPlaceNoMatch(t *testing.T) {
	svc := NewNavigationService(zap.NewNop(), &fakeEngine{}, &fakeGeocoder{})

	_, _, err := svc.StartNavigationToPlace(context.Background(), -7.78, 110.36, "nowhere at all")
	require.Equal(t, util.ErrNotFound, errCode(t, err))
}

func TestNavigationServiceStartToPlaceGeocoderFailure(t *testing.T) {
	boom := errors.New("nominatim down")
	svc := NewNavigationService(zap.NewNop(), &fakeEngine{}, &fakeGeocoder{err: boom})

	_, _, err := svc.StartNavigationToPlace(context.Background(), -7.78, 110.36, "stasiun tugu")
	require.ErrorIs(t, err, boom)
}

func TestNavigationServiceBuildsFix(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewNavigationService(zap.NewNop(), eng, &fakeGeocoder{})

	at := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	_, err := svc.PushPosition(4, -7.785, 110.3671, 12.5, at)
	require.NoError(t, err)
	require.NotNil(t, eng.lastFix)
	require.Equal(t, -7.785, eng.lastFix.Lat())
	require.Equal(t, 110.3671, eng.lastFix.Lon())
	require.Equal(t, 12.5, eng.lastFix.Speed())
	require.Equal(t, at, eng.lastFix.Time())
}
