package routeservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"go.uber.org/zap"
)

// Place is one forward-geocoding hit.
type Place struct {
	name     string
	location geo.Coordinate
}

func NewPlace(name string, location geo.Coordinate) Place {
	return Place{name: name, location: location}
}

func (p Place) GetName() string {
	return p.name
}

func (p Place) GetLocation() geo.Coordinate {
	return p.location
}

// NominatimClient resolves free-text queries against a nominatim-compatible
// geocoding endpoint, used to turn "destination by name" requests into route
// coordinates.
type NominatimClient struct {
	log        *zap.Logger
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewNominatimClient(log *zap.Logger, baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NominatimClient{
		log:        log,
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (c *NominatimClient) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 5
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=jsonv2&limit=%d",
		c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "build geocode request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "call geocoder")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, util.WrapErrorf(nil, util.ErrInternalServerError,
			"geocoder returned http %d", resp.StatusCode)
	}

	var raw []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "decode geocoder response")
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil || !geo.IsValidLatLon(lat, lon) {
			c.log.Warn("dropping geocoder hit with bad coordinates",
				zap.String("name", r.DisplayName))
			continue
		}
		places = append(places, NewPlace(r.DisplayName, geo.NewCoordinate(lat, lon)))
	}
	return places, nil
}
