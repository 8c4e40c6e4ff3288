package positionfeed

import (
	"context"

	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
)

// Update is one event on a position stream, either a fix or a transient read
// error. A stream error never closes the stream, the provider keeps emitting.
type Update struct {
	Fix *datastructure.GPSPoint
	Err error
}

// Provider abstracts a positioning source (gtfs-realtime feed, replay file,
// platform location service). Stream emits updates until ctx is canceled or
// the source ends, and then closes the channel. LastKnown returns the most
// recent cached fix without touching the source, Current forces one fresh
// fetch and should honor ctx deadlines.
type Provider interface {
	Stream(ctx context.Context) (<-chan Update, error)
	LastKnown(ctx context.Context) (*datastructure.GPSPoint, error)
	Current(ctx context.Context) (*datastructure.GPSPoint, error)
}

// Engine is the consumer side of a feed, satisfied by navigator sessions.
type Engine interface {
	OnPositionUpdate(fix *datastructure.GPSPoint)
}

// Notifier receives non-fatal feed problems, e.g. a degraded stream with no
// fallback fix available. Navigation stays active through these.
type Notifier func(err error)
