package routeservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"go.uber.org/zap"
)

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry string    `json:"geometry"`
	Distance float64   `json:"distance"`
	Duration float64   `json:"duration"`
	Legs     []osrmLeg `json:"legs"`
}

type osrmLeg struct {
	Distance float64    `json:"distance"`
	Steps    []osrmStep `json:"steps"`
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmManeuver struct {
	Location     []float64 `json:"location"` // lon, lat
	Type         string    `json:"type"`
	Modifier     string    `json:"modifier"`
	BearingAfter float64   `json:"bearing_after"`
	Exit         int       `json:"exit"`
}

/*
OSRMClient fetches planned routes from an osrm-routed compatible endpoint and
translates them into route plans: polyline-encoded geometry becomes the
tracking polyline, steps become maneuver instructions anchored on the
maneuver location.

A reachable service that answers with no route, or with a payload we cannot
make sense of, yields an empty plan rather than an error. Only transport
failures (unreachable host, canceled context) surface as errors.
*/
type OSRMClient struct {
	log        *zap.Logger
	baseURL    string
	profile    string
	httpClient *http.Client
}

func NewOSRMClient(log *zap.Logger, baseURL, profile string, timeout time.Duration) *OSRMClient {
	if profile == "" {
		profile = "driving"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRMClient{
		log:        log,
		baseURL:    baseURL,
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OSRMClient) FetchRoute(ctx context.Context, origin, destination geo.Coordinate) (*datastructure.RoutePlan, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=polyline&steps=true",
		c.baseURL, c.profile,
		origin.GetLon(), origin.GetLat(),
		destination.GetLon(), destination.GetLat())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "build route request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "call route service")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "read route response")
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("route service refused the query",
			zap.Int("status", resp.StatusCode))
		return datastructure.NewEmptyRoutePlan(), nil
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.log.Warn("route service sent an undecodable payload", zap.Error(err))
		return datastructure.NewEmptyRoutePlan(), nil
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		c.log.Info("no route between the requested points",
			zap.String("code", parsed.Code))
		return datastructure.NewEmptyRoutePlan(), nil
	}

	plan := c.buildPlan(parsed.Routes[0])
	if plan.IsEmpty() {
		return plan, nil
	}
	c.log.Info("route fetched",
		zap.Float64("distance_meters", parsed.Routes[0].Distance),
		zap.Int("points", plan.NumPoints()),
		zap.Int("steps", plan.NumSteps()))
	return plan, nil
}

func (c *OSRMClient) buildPlan(route osrmRoute) *datastructure.RoutePlan {
	points, err := geo.CoordsFromPolyline(route.Geometry)
	if err != nil || len(points) == 0 {
		c.log.Warn("route geometry is unusable", zap.Error(err))
		return datastructure.NewEmptyRoutePlan()
	}

	var steps []datastructure.ManeuverStep
	for _, leg := range route.Legs {
		for _, s := range leg.Steps {
			if len(s.Maneuver.Location) < 2 {
				continue
			}
			anchor := geo.NewCoordinate(s.Maneuver.Location[1], s.Maneuver.Location[0])
			instruction := describeManeuver(s.Maneuver, s.Name)
			dist := s.Distance
			if dist <= 0 {
				dist = stepDistanceFromGeometry(points, anchor)
			}
			steps = append(steps, datastructure.NewManeuverStep(instruction, anchor, dist))
		}
	}

	return datastructure.NewRoutePlan(points, steps)
}

/*
stepDistanceFromGeometry recovers a missing step distance from the route
geometry: project the anchor onto its nearest polyline segment and measure
from there to the route end. Good enough for display when the route service
left the field out.
*/
func stepDistanceFromGeometry(points []geo.Coordinate, anchor geo.Coordinate) float64 {
	along, total := distanceAlongPolyline(points, anchor)
	remaining := total - along
	if remaining < 0 {
		return 0
	}
	return remaining
}

// distanceAlongPolyline returns the road distance from the polyline start to
// the anchor's projection onto its nearest segment, plus the full polyline
// length.
func distanceAlongPolyline(points []geo.Coordinate, anchor geo.Coordinate) (float64, float64) {
	bestPerp := math.Inf(1)
	bestAlong := 0.0
	cum := 0.0

	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		perp := geo.PointLinePerpendicularDistance(a, b, anchor)
		if perp < bestPerp {
			bestPerp = perp
			proj := geo.ProjectPointToLineCoord(a, b, anchor)
			bestAlong = cum + geo.DistanceMeters(a, proj)
		}
		cum += geo.DistanceMeters(a, b)
	}

	return bestAlong, cum
}
