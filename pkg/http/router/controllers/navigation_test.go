package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/engine"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	helper "github.com/ELMGHARU/detection-tracker/pkg/http/router/routerhelper"
	"github.com/ELMGHARU/detection-tracker/pkg/routeservice"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubNavigationService struct {
	id   uint64
	snap navigator.Snapshot
	err  error

	views  []engine.SessionView
	places []routeservice.Place

	lastPushedLat float64
	lastPushedLon float64
}

func (s *stubNavigationService) StartNavigation(_ context.Context, _, _, _, _ float64) (uint64, navigator.Snapshot, error) {
	return s.id, s.snap, s.err
}

func (s *stubNavigationService) StartNavigationToPlace(_ context.Context, _, _ float64, _ string) (uint64, navigator.Snapshot, error) {
	return s.id, s.snap, s.err
}

func (s *stubNavigationService) PushPosition(_ uint64, lat, lon, _ float64, _ time.Time) (navigator.Snapshot, error) {
	s.lastPushedLat, s.lastPushedLon = lat, lon
	return s.snap, s.err
}

func (s *stubNavigationService) GetSnapshot(_ uint64) (navigator.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubNavigationService) StopNavigation(_ uint64) error {
	return s.err
}

func (s *stubNavigationService) SessionsWithinRadius(_, _, _ float64) []engine.SessionView {
	return s.views
}

func (s *stubNavigationService) Geocode(_ context.Context, _ string, _ int) ([]routeservice.Place, error) {
	return s.places, s.err
}

func activeSnapshot(t *testing.T) navigator.Snapshot {
	t.Helper()
	plan := datastructure.NewRoutePlan([]geo.Coordinate{
		geo.NewCoordinate(-7.7829, 110.3671),
		geo.NewCoordinate(-7.7900, 110.3671),
	}, []datastructure.ManeuverStep{
		datastructure.NewManeuverStep("Head South", geo.NewCoordinate(-7.7829, 110.3671), 789),
	})
	sess := navigator.NewSession(zap.NewNop(), 0, 0, 0)
	require.NoError(t, sess.Start(plan))
	return sess.Snapshot()
}

func newTestRouter(service NavigationService) *httprouter.Router {
	router := httprouter.New()
	group := helper.NewRouteGroup(router, "/api")
	New(service, zap.NewNop()).Routes(group)
	return router
}

type apiBody struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, router *httprouter.Router, method, target, body string) (int, apiBody) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var parsed apiBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec.Code, parsed
}

func TestStartNavigationEndpoint(t *testing.T) {
	service := &stubNavigationService{id: 7, snap: activeSnapshot(t)}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodPost, "/api/navigation",
		`{"origin_lat": -7.7829, "origin_lon": 110.3671, "destination_lat": -7.79, "destination_lon": 110.3671}`)
	require.Equal(t, http.StatusCreated, status)

	var snap snapshotResponse
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	require.Equal(t, uint64(7), snap.SessionID)
	require.Equal(t, "active", snap.State)
	require.NotEmpty(t, snap.RemainingRoute)

	decoded, err := geo.CoordsFromPolyline(snap.RemainingRoute)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
}

func TestStartNavigationEndpointRejectsPartialBody(t *testing.T) {
	service := &stubNavigationService{id: 7, snap: activeSnapshot(t)}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodPost, "/api/navigation",
		`{"origin_lat": -7.7829, "origin_lon": 110.3671}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body.Error)
	require.Contains(t, body.Error.Message, "validation error")
}

func TestStartNavigationEndpointNoRoute(t *testing.T) {
	service := &stubNavigationService{
		err: util.WrapErrorf(nil, util.ErrNoRoute, "no route"),
	}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodPost, "/api/navigation",
		`{"origin_lat": -7.7829, "origin_lon": 110.3671, "destination_lat": -7.79, "destination_lon": 110.3671}`)
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, body.Error)
}

func TestPushPositionEndpoint(t *testing.T) {
	service := &stubNavigationService{snap: activeSnapshot(t)}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodPost, "/api/navigation/3/position",
		`{"lat": -7.785, "lon": 110.3671, "speed_mps": 12.5}`)
	require.Equal(t, http.StatusOK, status)

	var snap snapshotResponse
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	require.Equal(t, "active", snap.State)
	require.Equal(t, -7.785, service.lastPushedLat)
	require.Equal(t, 110.3671, service.lastPushedLon)
}

func TestPushPositionEndpointRejectsBadSessionID(t *testing.T) {
	service := &stubNavigationService{snap: activeSnapshot(t)}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodPost, "/api/navigation/abc/position",
		`{"lat": -7.785, "lon": 110.3671}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body.Error)
}

func TestStopNavigationEndpoint(t *testing.T) {
	service := &stubNavigationService{}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodDelete, "/api/navigation/3", "")
	require.Equal(t, http.StatusOK, status)

	var stopped stopNavigationResponse
	require.NoError(t, json.Unmarshal(body.Data, &stopped))
	require.True(t, stopped.Stopped)
	require.Equal(t, uint64(3), stopped.SessionID)
}

func TestStopNavigationEndpointUnknownSession(t *testing.T) {
	service := &stubNavigationService{
		err: util.WrapErrorf(nil, util.ErrNotFound, "navigation session 99 not found"),
	}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodDelete, "/api/navigation/99", "")
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, body.Error)
}

func TestViewportEndpoint(t *testing.T) {
	service := &stubNavigationService{}
	router := newTestRouter(service)

	status, _ := doRequest(t, router, http.MethodGet, "/api/viewport?lat=-7.78&lon=110.36&radius_km=5", "")
	require.Equal(t, http.StatusOK, status)

	status, body := doRequest(t, router, http.MethodGet, "/api/viewport?lon=110.36&radius_km=5", "")
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body.Error)
}

func TestGeocodeEndpoint(t *testing.T) {
	service := &stubNavigationService{places: []routeservice.Place{
		routeservice.NewPlace("Tugu Yogyakarta", geo.NewCoordinate(-7.7829, 110.3671)),
	}}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodGet, "/api/geocode?q=tugu", "")
	require.Equal(t, http.StatusOK, status)

	var places []placeResponse
	require.NoError(t, json.Unmarshal(body.Data, &places))
	require.Len(t, places, 1)
	require.Equal(t, "Tugu Yogyakarta", places[0].Name)

	status, body = doRequest(t, router, http.MethodGet, "/api/geocode", "")
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body.Error)
}

func TestPushPositionEndpointConflictWhenIdle(t *testing.T) {
	service := &stubNavigationService{
		err: util.WrapErrorf(nil, util.ErrInvalidState, "session is idle"),
	}
	router := newTestRouter(service)

	status, body := doRequest(t, router, http.MethodPost, "/api/navigation/3/position",
		`{"lat": -7.785, "lon": 110.3671}`)
	require.Equal(t, http.StatusConflict, status)
	require.NotNil(t, body.Error)
}
