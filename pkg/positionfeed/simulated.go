package positionfeed

import (
	"context"
	"sync"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

/*
SimulatedProvider replays a route polyline as a position stream, one fix per
interval, with optional gaussian-ish jitter so the snap logic gets exercised
with off-polyline fixes like a real receiver would produce. The stream closes
itself after the last point.
*/
type SimulatedProvider struct {
	log          *zap.Logger
	points       []geo.Coordinate
	interval     time.Duration
	speedMps     float64
	jitterMeters float64
	rd           *rand.Rand

	mu   sync.Mutex
	last *datastructure.GPSPoint
}

func NewSimulatedProvider(log *zap.Logger, points []geo.Coordinate, interval time.Duration,
	speedMps, jitterMeters float64, seed uint64) *SimulatedProvider {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SimulatedProvider{
		log:          log,
		points:       points,
		interval:     interval,
		speedMps:     speedMps,
		jitterMeters: jitterMeters,
		rd:           rand.New(rand.NewSource(seed)),
	}
}

func (p *SimulatedProvider) Stream(ctx context.Context) (<-chan Update, error) {
	if len(p.points) == 0 {
		return nil, util.WrapErrorf(nil, util.ErrPositionUnavailable, "no points to replay")
	}

	out := make(chan Update)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for _, pt := range p.points {
			fix := p.makeFix(pt)
			select {
			case out <- Update{Fix: fix}:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
		p.log.Info("replay finished", zap.Int("points", len(p.points)))
	}()
	return out, nil
}

func (p *SimulatedProvider) LastKnown(_ context.Context) (*datastructure.GPSPoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil, util.WrapErrorf(nil, util.ErrPositionUnavailable, "replay not started")
	}
	return p.last, nil
}

func (p *SimulatedProvider) Current(_ context.Context) (*datastructure.GPSPoint, error) {
	return p.LastKnown(context.Background())
}

func (p *SimulatedProvider) makeFix(pt geo.Coordinate) *datastructure.GPSPoint {
	lat, lon := pt.GetLat(), pt.GetLon()
	if p.jitterMeters > 0 {
		bearing := p.rd.Float64() * 360.0
		distKM := p.rd.Float64() * p.jitterMeters / 1000.0
		lat, lon = geo.GetDestinationPoint(lat, lon, bearing, distKM)
	}

	fix := datastructure.NewGPSPoint(lat, lon, time.Now(), p.speedMps)
	p.mu.Lock()
	p.last = fix
	p.mu.Unlock()
	return fix
}
