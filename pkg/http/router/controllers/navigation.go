package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	helper "github.com/ELMGHARU/detection-tracker/pkg/http/router/routerhelper"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type navigationAPI struct {
	navigationService NavigationService
	log               *zap.Logger
}

func New(navigationService NavigationService, log *zap.Logger) *navigationAPI {
	return &navigationAPI{
		navigationService: navigationService,
		log:               log,
	}
}

func (api *navigationAPI) Routes(group *helper.RouteGroup) {
	group.POST("/navigation", api.startNavigation)
	group.POST("/navigation/search", api.startNavigationToPlace)
	group.GET("/navigation/:id", api.getSnapshot)
	group.POST("/navigation/:id/position", api.pushPosition)
	group.DELETE("/navigation/:id", api.stopNavigation)
	group.GET("/viewport", api.sessionsInViewport)
	group.GET("/geocode", api.geocode)
}

func (api *navigationAPI) validateRequest(w http.ResponseWriter, r *http.Request, request interface{}) bool {
	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return false
	}
	return true
}

func (api *navigationAPI) sessionID(w http.ResponseWriter, r *http.Request, p httprouter.Params) (uint64, bool) {
	id, err := strconv.ParseUint(p.ByName("id"), 10, 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("session id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (api *navigationAPI) startNavigation(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request startNavigationRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	id, snap, err := api.navigationService.StartNavigation(r.Context(),
		request.OriginLat, request.OriginLon, request.DestinationLat, request.DestinationLon)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusCreated, envelope{"data": NewSnapshotResponse(id, snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) startNavigationToPlace(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request startNavigationToPlaceRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	id, snap, err := api.navigationService.StartNavigationToPlace(r.Context(),
		request.OriginLat, request.OriginLon, request.Query)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusCreated, envelope{"data": NewSnapshotResponse(id, snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) getSnapshot(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id, ok := api.sessionID(w, r, p)
	if !ok {
		return
	}

	snap, err := api.navigationService.GetSnapshot(id)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewSnapshotResponse(id, snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) pushPosition(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id, ok := api.sessionID(w, r, p)
	if !ok {
		return
	}

	var request positionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	snap, err := api.navigationService.PushPosition(id, request.Lat, request.Lon, request.SpeedMps, request.At())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewSnapshotResponse(id, snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) stopNavigation(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id, ok := api.sessionID(w, r, p)
	if !ok {
		return
	}

	if err := api.navigationService.StopNavigation(id); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": stopNavigationResponse{SessionID: id, Stopped: true}}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) sessionsInViewport(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("lat is required and must be a valid float"))
		return
	}
	lon, err := strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("lon is required and must be a valid float"))
		return
	}
	radiusKM, err := strconv.ParseFloat(query.Get("radius_km"), 64)
	if err != nil || radiusKM <= 0 {
		api.BadRequestResponse(w, r, errors.New("radius_km is required and must be a positive float"))
		return
	}

	views := api.navigationService.SessionsWithinRadius(lat, lon, radiusKM)

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewViewportResponse(views)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

func (api *navigationAPI) geocode(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	query := r.URL.Query()

	q := query.Get("q")
	if q == "" {
		api.BadRequestResponse(w, r, errors.New("q is required"))
		return
	}
	limit := 5
	if rawLimit := query.Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			api.BadRequestResponse(w, r, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	places, err := api.navigationService.Geocode(r.Context(), q, limit)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewGeocodeResponse(places)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}
