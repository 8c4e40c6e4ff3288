package positionfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/util"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

func vehicleEntity(id string, lat, lon, speed float32, ts uint64) *gtfsrtpb.FeedEntity {
	return &gtfsrtpb.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfsrtpb.VehiclePosition{
			Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String(id)},
			Position: &gtfsrtpb.Position{
				Latitude:  proto.Float32(lat),
				Longitude: proto.Float32(lon),
				Speed:     proto.Float32(speed),
			},
			Timestamp: proto.Uint64(ts),
		},
	}
}

func feedServer(t *testing.T, entities ...*gtfsrtpb.FeedEntity) *httptest.Server {
	t.Helper()
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1700000000),
		},
		Entity: entities,
	}
	body, err := proto.Marshal(fm)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
}

func TestGTFSRTProviderCurrentPicksRequestedVehicle(t *testing.T) {
	srv := feedServer(t,
		vehicleEntity("bus-1", -6.2, 106.8, 4, 1700000001),
		vehicleEntity("bus-7", -7.8, 110.4, 9, 1700000002),
	)
	defer srv.Close()

	p := NewGTFSRTProvider(zap.NewNop(), srv.URL, "bus-7", 50*time.Millisecond)

	fix, err := p.Current(context.Background())
	require.NoError(t, err)
	require.InDelta(t, -7.8, fix.Lat(), 1e-4)
	require.InDelta(t, 110.4, fix.Lon(), 1e-4)
	require.InDelta(t, 9, fix.Speed(), 1e-6)
	require.Equal(t, time.Unix(1700000002, 0), fix.Time())

	cached, err := p.LastKnown(context.Background())
	require.NoError(t, err)
	require.Same(t, fix, cached)
}

func TestGTFSRTProviderEmptyVehicleIDTakesFirstPosition(t *testing.T) {
	srv := feedServer(t,
		vehicleEntity("bus-1", -6.2, 106.8, 4, 1700000001),
		vehicleEntity("bus-7", -7.8, 110.4, 9, 1700000002),
	)
	defer srv.Close()

	p := NewGTFSRTProvider(zap.NewNop(), srv.URL, "", 50*time.Millisecond)

	fix, err := p.Current(context.Background())
	require.NoError(t, err)
	require.InDelta(t, -6.2, fix.Lat(), 1e-4)
}

func TestGTFSRTProviderUnknownVehicle(t *testing.T) {
	srv := feedServer(t, vehicleEntity("bus-1", -6.2, 106.8, 4, 1700000001))
	defer srv.Close()

	p := NewGTFSRTProvider(zap.NewNop(), srv.URL, "tram-9", 50*time.Millisecond)

	_, err := p.Current(context.Background())
	require.Error(t, err)

	var uerr *util.Error
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, util.ErrPositionUnavailable, uerr.Code())

	_, err = p.LastKnown(context.Background())
	require.Error(t, err)
}

func TestGTFSRTProviderMalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("this is not protobuf, sorry"))
	}))
	defer srv.Close()

	p := NewGTFSRTProvider(zap.NewNop(), srv.URL, "bus-7", 50*time.Millisecond)

	_, err := p.Current(context.Background())
	require.Error(t, err)
}

func TestGTFSRTProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewGTFSRTProvider(zap.NewNop(), srv.URL, "bus-7", 50*time.Millisecond)

	_, err := p.Current(context.Background())
	require.Error(t, err)

	var uerr *util.Error
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, util.ErrPositionUnavailable, uerr.Code())
}

func TestGTFSRTProviderStreamDeduplicatesByTimestamp(t *testing.T) {
	srv := feedServer(t, vehicleEntity("bus-7", -7.8, 110.4, 9, 1700000002))
	defer srv.Close()

	p := NewGTFSRTProvider(zap.NewNop(), srv.URL, "bus-7", 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := p.Stream(ctx)
	require.NoError(t, err)

	var fixes int
	deadline := time.After(300 * time.Millisecond)
drain:
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				break drain
			}
			require.NoError(t, u.Err)
			if u.Fix != nil {
				fixes++
			}
		case <-deadline:
			break drain
		}
	}

	// the replayed feed never changes its timestamp, only the first poll
	// may produce a fix
	require.Equal(t, 1, fixes)
}
