package controllers

import (
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/engine"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/routeservice"
)

type startNavigationRequest struct {
	OriginLat      float64 `json:"origin_lat" validate:"required,min=-90,max=90"`
	OriginLon      float64 `json:"origin_lon" validate:"required,min=-180,max=180"`
	DestinationLat float64 `json:"destination_lat" validate:"required,min=-90,max=90"`
	DestinationLon float64 `json:"destination_lon" validate:"required,min=-180,max=180"`
}

type startNavigationToPlaceRequest struct {
	OriginLat float64 `json:"origin_lat" validate:"required,min=-90,max=90"`
	OriginLon float64 `json:"origin_lon" validate:"required,min=-180,max=180"`
	Query     string  `json:"query" validate:"required"`
}

type positionUpdateRequest struct {
	Lat       float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon       float64 `json:"lon" validate:"required,min=-180,max=180"`
	SpeedMps  float64 `json:"speed_mps" validate:"min=0"`
	Timestamp string  `json:"timestamp"`
}

// At falls back to the server clock when the sender left the timestamp out.
func (r positionUpdateRequest) At() time.Time {
	if r.Timestamp == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Now()
	}
	return t
}

type coordinateResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func newCoordinateResponse(c geo.Coordinate) coordinateResponse {
	return coordinateResponse{Lat: c.GetLat(), Lon: c.GetLon()}
}

type snapshotResponse struct {
	SessionID                   uint64             `json:"session_id"`
	State                       string             `json:"state"`
	BearingDegrees              float64            `json:"bearing_degrees"`
	DistanceToDestinationMeters float64            `json:"distance_to_destination_meters"`
	EtaSeconds                  float64            `json:"eta_seconds"`
	NextInstruction             string             `json:"next_instruction,omitempty"`
	CurrentStepIndex            int                `json:"current_step_index"`
	SnappedPosition             coordinateResponse `json:"snapped_position"`
	RemainingRoute              string             `json:"remaining_route"`
	Track                       string             `json:"track"`
	UpdatedAt                   time.Time          `json:"updated_at"`
}

// NewSnapshotResponse flattens a session snapshot for the wire. Route and
// track geometries go out polyline-encoded like every geometry we serve.
func NewSnapshotResponse(id uint64, snap navigator.Snapshot) snapshotResponse {
	return snapshotResponse{
		SessionID:                   id,
		State:                       snap.GetState().String(),
		BearingDegrees:              snap.GetBearingDegrees(),
		DistanceToDestinationMeters: snap.GetDistanceToDestinationMeters(),
		EtaSeconds:                  snap.GetEstimatedTimeRemaining().Seconds(),
		NextInstruction:             snap.GetNextInstruction(),
		CurrentStepIndex:            snap.GetCurrentStepIndex(),
		SnappedPosition:             newCoordinateResponse(snap.GetSnappedPosition()),
		RemainingRoute:              geo.PolylineFromCoords(snap.GetRemainingRoute()),
		Track:                       geo.PolylineFromCoords(snap.GetTrack()),
		UpdatedAt:                   snap.GetUpdatedAt(),
	}
}

type viewportResponse struct {
	Sessions []snapshotResponse `json:"sessions"`
}

func NewViewportResponse(views []engine.SessionView) viewportResponse {
	sessions := make([]snapshotResponse, 0, len(views))
	for _, v := range views {
		sessions = append(sessions, NewSnapshotResponse(v.GetID(), v.GetSnapshot()))
	}
	return viewportResponse{Sessions: sessions}
}

type placeResponse struct {
	Name     string             `json:"name"`
	Location coordinateResponse `json:"location"`
}

func NewGeocodeResponse(places []routeservice.Place) []placeResponse {
	out := make([]placeResponse, 0, len(places))
	for _, p := range places {
		out = append(out, placeResponse{
			Name:     p.GetName(),
			Location: newCoordinateResponse(p.GetLocation()),
		})
	}
	return out
}

type stopNavigationResponse struct {
	SessionID uint64 `json:"session_id"`
	Stopped   bool   `json:"stopped"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
