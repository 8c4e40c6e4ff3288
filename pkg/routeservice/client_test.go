package routeservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/geo"

	"go.uber.org/zap"
)

// polyline "???gE?gE" decodes to (0,0) (0,0.001) (0,0.002)
const routeFixture = `{
  "code": "Ok",
  "routes": [{
    "geometry": "???gE?gE",
    "distance": 222.4,
    "duration": 45.2,
    "legs": [{
      "distance": 222.4,
      "steps": [
        {"distance": 111.2, "duration": 22.6, "name": "Jalan Margo Utomo",
         "maneuver": {"location": [0.0, 0.0], "type": "depart", "bearing_after": 90.0}},
        {"distance": 111.2, "duration": 22.6, "name": "Jalan Malioboro",
         "maneuver": {"location": [0.001, 0.0], "type": "turn", "modifier": "left"}},
        {"distance": 0, "duration": 0, "name": "",
         "maneuver": {"location": [0.002, 0.0], "type": "arrive"}}
      ]
    }]
  }]
}`

func osrmServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchRouteBuildsPlan(t *testing.T) {
	srv := osrmServer(t, http.StatusOK, routeFixture)
	defer srv.Close()

	c := NewOSRMClient(zap.NewNop(), srv.URL, "driving", time.Second)
	plan, err := c.FetchRoute(context.Background(), geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.002))
	if err != nil {
		t.Fatalf("FetchRoute: %v", err)
	}

	if plan.NumPoints() != 3 {
		t.Fatalf("plan points = %d, want 3", plan.NumPoints())
	}
	if got := plan.GetPoint(1).GetLon(); got != 0.001 {
		t.Errorf("middle point lon = %v, want 0.001", got)
	}
	dest, ok := plan.GetDestination()
	if !ok || dest.GetLon() != 0.002 {
		t.Errorf("destination = %+v ok=%v, want lon 0.002", dest, ok)
	}

	if plan.NumSteps() != 3 {
		t.Fatalf("plan steps = %d, want 3", plan.NumSteps())
	}
	expected := []string{
		"Head East toward Jalan Margo Utomo",
		"Turn left onto Jalan Malioboro",
		"you have arrived at your destination",
	}
	for i, want := range expected {
		if got := plan.GetStep(i).GetInstruction(); got != want {
			t.Errorf("step %d instruction = %q, want %q", i, got, want)
		}
	}

	if anchor := plan.GetStep(1).GetLocation(); anchor.GetLat() != 0 || anchor.GetLon() != 0.001 {
		t.Errorf("step 1 anchor = %+v, want (0, 0.001)", anchor)
	}

	// the arrive step had no distance in the payload and is recovered from
	// the geometry, at the route end that is zero
	if got := plan.GetStep(2).GetDistanceMeters(); got > 1 {
		t.Errorf("arrive step distance = %v, want ~0", got)
	}
	if got := plan.GetStep(0).GetDistanceMeters(); got != 111.2 {
		t.Errorf("depart step distance = %v, want 111.2", got)
	}
}

func TestFetchRouteNoRouteCode(t *testing.T) {
	srv := osrmServer(t, http.StatusOK, `{"code":"NoRoute","routes":[]}`)
	defer srv.Close()

	c := NewOSRMClient(zap.NewNop(), srv.URL, "driving", time.Second)
	plan, err := c.FetchRoute(context.Background(), geo.NewCoordinate(0, 0), geo.NewCoordinate(1, 1))
	if err != nil {
		t.Fatalf("no-route answer must not error: %v", err)
	}
	if !plan.IsEmpty() {
		t.Error("expected an empty plan")
	}
}

func TestFetchRouteMalformedPayload(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"broken json", http.StatusOK, `{"code":"Ok","routes":[{`},
		{"garbage geometry", http.StatusOK, `{"code":"Ok","routes":[{"geometry":""}]}`},
		{"http error status", http.StatusBadRequest, `{"code":"InvalidQuery"}`},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			srv := osrmServer(t, tt.status, tt.body)
			defer srv.Close()

			c := NewOSRMClient(zap.NewNop(), srv.URL, "driving", time.Second)
			plan, err := c.FetchRoute(context.Background(), geo.NewCoordinate(0, 0), geo.NewCoordinate(1, 1))
			if err != nil {
				t.Fatalf("malformed answers must degrade to no route, got error: %v", err)
			}
			if !plan.IsEmpty() {
				t.Error("expected an empty plan")
			}
		})
	}
}

func TestFetchRouteTransportError(t *testing.T) {
	srv := osrmServer(t, http.StatusOK, routeFixture)
	srv.Close() // connection refused from here on

	c := NewOSRMClient(zap.NewNop(), srv.URL, "driving", time.Second)
	_, err := c.FetchRoute(context.Background(), geo.NewCoordinate(0, 0), geo.NewCoordinate(1, 1))
	if err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestDistanceAlongPolyline(t *testing.T) {
	points := []geo.Coordinate{
		geo.NewCoordinate(0, 0),
		geo.NewCoordinate(0, 0.001),
		geo.NewCoordinate(0, 0.002),
	}

	along, total := distanceAlongPolyline(points, geo.NewCoordinate(0, 0.001))
	if along < 110 || along > 113 {
		t.Errorf("along = %v, want ~111.2", along)
	}
	if total < 221 || total > 224 {
		t.Errorf("total = %v, want ~222.4", total)
	}
}
