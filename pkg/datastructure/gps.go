package datastructure

import (
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/geo"
)

type GPSPoint struct {
	lon   float64
	lat   float64
	time  time.Time
	speed float64 // meter/second, 0 when the receiver reports none
}

func NewGPSPoint(lat, lon float64, t time.Time, speed float64) *GPSPoint {
	return &GPSPoint{
		lon:   lon,
		lat:   lat,
		time:  t,
		speed: speed,
	}
}

func (gp *GPSPoint) Lon() float64 {
	return gp.lon
}

func (gp *GPSPoint) Lat() float64 {
	return gp.lat
}

func (gp *GPSPoint) Time() time.Time {
	return gp.time
}

func (gp *GPSPoint) Speed() float64 {
	return gp.speed
}

func (gp *GPSPoint) ToCoordinate() geo.Coordinate {
	return geo.NewCoordinate(gp.lat, gp.lon)
}
