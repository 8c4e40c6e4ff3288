package positionfeed

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/util"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

/*
GTFSRTProvider polls a GTFS-Realtime VehiclePositions feed and turns one
vehicle's entity into a position stream. Fixes are deduplicated on the
vehicle timestamp so a slow feed does not replay the same fix every poll.
An empty vehicleID matches the first entity that carries a position.
*/
type GTFSRTProvider struct {
	log          *zap.Logger
	feedURL      string
	vehicleID    string
	pollInterval time.Duration
	httpClient   *http.Client

	mu            sync.Mutex
	lastFix       *datastructure.GPSPoint
	lastTimestamp int64
}

func NewGTFSRTProvider(log *zap.Logger, feedURL, vehicleID string, pollInterval time.Duration) *GTFSRTProvider {
	return &GTFSRTProvider{
		log:          log,
		feedURL:      feedURL,
		vehicleID:    vehicleID,
		pollInterval: pollInterval,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GTFSRTProvider) Stream(ctx context.Context) (<-chan Update, error) {
	out := make(chan Update, 16)
	go p.poll(ctx, out)
	return out, nil
}

func (p *GTFSRTProvider) poll(ctx context.Context, out chan<- Update) {
	defer close(out)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if util.StopConcurrentOperation(ctx) {
			return
		}

		fix, err := p.fetchOnce(ctx, true)
		var u Update
		switch {
		case err != nil:
			u = Update{Err: err}
		case fix != nil:
			u = Update{Fix: fix}
		}
		if u.Fix != nil || u.Err != nil {
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *GTFSRTProvider) LastKnown(_ context.Context) (*datastructure.GPSPoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastFix == nil {
		return nil, util.WrapErrorf(nil, util.ErrPositionUnavailable, "no fix cached yet")
	}
	return p.lastFix, nil
}

func (p *GTFSRTProvider) Current(ctx context.Context) (*datastructure.GPSPoint, error) {
	fix, err := p.fetchOnce(ctx, false)
	if err != nil {
		return nil, err
	}
	if fix == nil {
		return nil, util.WrapErrorf(nil, util.ErrPositionUnavailable,
			"vehicle %s not present in feed", p.vehicleID)
	}
	return fix, nil
}

// fetchOnce downloads and parses the feed. With dedupe set, a fix whose
// timestamp has been seen before comes back as (nil, nil).
func (p *GTFSRTProvider) fetchOnce(ctx context.Context, dedupe bool) (*datastructure.GPSPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrPositionUnavailable, "build gtfs-rt request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrPositionUnavailable, "fetch gtfs-rt feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, util.WrapErrorf(nil, util.ErrPositionUnavailable,
			"gtfs-rt feed returned http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrPositionUnavailable, "read gtfs-rt feed")
	}

	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(body, &fm); err != nil {
		return nil, util.WrapErrorf(err, util.ErrPositionUnavailable, "decode gtfs-rt feed")
	}

	return p.extractFix(&fm, dedupe), nil
}

func (p *GTFSRTProvider) extractFix(fm *gtfsrtpb.FeedMessage, dedupe bool) *datastructure.GPSPoint {
	for _, e := range fm.Entity {
		if e.Vehicle == nil || e.Vehicle.Position == nil {
			continue
		}
		if p.vehicleID != "" {
			if e.Vehicle.Vehicle == nil || e.Vehicle.Vehicle.Id == nil ||
				*e.Vehicle.Vehicle.Id != p.vehicleID {
				continue
			}
		}
		pos := e.Vehicle.Position
		if pos.Latitude == nil || pos.Longitude == nil {
			continue
		}

		var ts int64
		if e.Vehicle.Timestamp != nil {
			ts = int64(*e.Vehicle.Timestamp)
		} else if fm.Header != nil && fm.Header.Timestamp != nil {
			ts = int64(*fm.Header.Timestamp)
		} else {
			ts = time.Now().Unix()
		}

		var speed float64
		if pos.Speed != nil {
			speed = float64(*pos.Speed)
		}

		fix := datastructure.NewGPSPoint(float64(*pos.Latitude), float64(*pos.Longitude),
			time.Unix(ts, 0), speed)

		p.mu.Lock()
		stale := dedupe && ts <= p.lastTimestamp
		if !stale {
			p.lastFix = fix
			p.lastTimestamp = ts
		}
		p.mu.Unlock()

		if stale {
			return nil
		}
		p.log.Debug("gtfs-rt fix",
			zap.Float64("lat", fix.Lat()), zap.Float64("lon", fix.Lon()),
			zap.Float64("speed", fix.Speed()), zap.Int64("timestamp", ts))
		return fix
	}
	return nil
}
