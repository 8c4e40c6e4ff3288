package routeservice

import (
	"context"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultRouteCacheSize = 4096

// cache keys are coordinates rounded to 5 decimal places, about a meter, so
// jittered requests for the same trip share an entry.
type routeCacheKey struct {
	originLat float64
	originLon float64
	destLat   float64
	destLon   float64
}

func newRouteCacheKey(origin, destination geo.Coordinate) routeCacheKey {
	return routeCacheKey{
		originLat: util.RoundFloat(origin.GetLat(), 5),
		originLon: util.RoundFloat(origin.GetLon(), 5),
		destLat:   util.RoundFloat(destination.GetLat(), 5),
		destLon:   util.RoundFloat(destination.GetLon(), 5),
	}
}

type routeFetcher interface {
	FetchRoute(ctx context.Context, origin, destination geo.Coordinate) (*datastructure.RoutePlan, error)
}

// CachedClient puts an lru cache in front of a route fetcher. Only usable
// plans are cached, "no route" answers and failures always go back upstream.
type CachedClient struct {
	log   *zap.Logger
	inner routeFetcher
	cache *lru.Cache[routeCacheKey, *datastructure.RoutePlan]
}

func NewCachedClient(log *zap.Logger, inner routeFetcher, size int) (*CachedClient, error) {
	if size <= 0 {
		size = defaultRouteCacheSize
	}
	cache, err := lru.New[routeCacheKey, *datastructure.RoutePlan](size)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "build route cache")
	}
	return &CachedClient{
		log:   log,
		inner: inner,
		cache: cache,
	}, nil
}

func (c *CachedClient) FetchRoute(ctx context.Context, origin, destination geo.Coordinate) (*datastructure.RoutePlan, error) {
	key := newRouteCacheKey(origin, destination)
	if plan, ok := c.cache.Get(key); ok {
		c.log.Debug("route cache hit",
			zap.Float64("origin_lat", key.originLat), zap.Float64("origin_lon", key.originLon))
		return plan, nil
	}

	plan, err := c.inner.FetchRoute(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	if plan != nil && !plan.IsEmpty() {
		c.cache.Add(key, plan)
	}
	return plan, nil
}
