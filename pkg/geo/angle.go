package geo

import (
	"math"

	"github.com/ELMGHARU/detection-tracker/pkg/util"
)

/*
BearingTo. calculate initial bearing from p1 toward p2, in degrees [0, 360).
https://www.movable-type.co.uk/scripts/latlong.html

identical points have no defined bearing, the result is pinned to 0 so
callers always get a stable heading.
*/
func BearingTo(p1Lat, p1Lon, p2Lat, p2Lon float64) float64 {
	if p1Lat == p2Lat && p1Lon == p2Lon {
		return 0
	}

	dLon := util.DegreeToRadians(p2Lon - p1Lon)

	lat1 := util.DegreeToRadians(p1Lat)
	lat2 := util.DegreeToRadians(p2Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Mod(util.RadiansToDegree(math.Atan2(y, x))+360, 360.0)

	return brng
}
