package geo

import (
	"math"
	"testing"
)

func TestPolylineRoundTrip(t *testing.T) {
	coords := []Coordinate{
		NewCoordinate(38.5, -120.2),
		NewCoordinate(40.7, -120.95),
		NewCoordinate(43.252, -126.453),
	}

	shape := PolylineFromCoords(coords)
	if shape != "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Errorf("unexpected encoding: %q", shape)
	}

	decoded, err := CoordsFromPolyline(shape)
	if err != nil {
		t.Fatalf("CoordsFromPolyline: %v", err)
	}
	if len(decoded) != len(coords) {
		t.Fatalf("decoded %d coords, want %d", len(decoded), len(coords))
	}
	for i := range coords {
		if math.Abs(decoded[i].GetLat()-coords[i].GetLat()) > 1e-5 ||
			math.Abs(decoded[i].GetLon()-coords[i].GetLon()) > 1e-5 {
			t.Errorf("coord %d: got %+v, want %+v", i, decoded[i], coords[i])
		}
	}
}

func TestPolylineFromCoordsEmpty(t *testing.T) {
	if got := PolylineFromCoords(nil); got != "" {
		t.Errorf("empty coords should encode to empty string, got %q", got)
	}
}
