package geo

import (
	"github.com/twpayne/go-polyline"
)

// PolylineFromCoords encodes coordinates with the google polyline algorithm
// (precision 1e-5), the wire shape used for every route geometry we serve.
func PolylineFromCoords(coords []Coordinate) string {
	latLngs := make([][]float64, len(coords))
	for i, c := range coords {
		latLngs[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(latLngs))
}

// CoordsFromPolyline decodes a google polyline string into coordinates.
func CoordsFromPolyline(shape string) ([]Coordinate, error) {
	latLngs, _, err := polyline.DecodeCoords([]byte(shape))
	if err != nil {
		return nil, err
	}
	coords := make([]Coordinate, len(latLngs))
	for i, ll := range latLngs {
		coords[i] = NewCoordinate(ll[0], ll[1])
	}
	return coords, nil
}
