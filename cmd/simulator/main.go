package main

import (
	"context"
	"flag"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/concurrent"
	"github.com/ELMGHARU/detection-tracker/pkg/datastructure"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/geo"
	"github.com/ELMGHARU/detection-tracker/pkg/logger"
	"github.com/ELMGHARU/detection-tracker/pkg/positionfeed"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	vehicles = flag.Int("vehicles", 3, "number of concurrent simulated vehicles")
	interval = flag.Duration("interval", 500*time.Millisecond, "delay between replayed fixes")
	jitter   = flag.Float64("jitter", 4.0, "gps jitter applied to every fix, in meters")
	speed    = flag.Float64("speed", 11.0, "reported speed in m/s")
)

// a short drive through Yogyakarta, Tugu down Malioboro to the Kraton
var demoRoute = []geo.Coordinate{
	geo.NewCoordinate(-7.7828, 110.3671),
	geo.NewCoordinate(-7.7850, 110.3669),
	geo.NewCoordinate(-7.7886, 110.3667),
	geo.NewCoordinate(-7.7928, 110.3661),
	geo.NewCoordinate(-7.7956, 110.3656),
	geo.NewCoordinate(-7.8003, 110.3648),
	geo.NewCoordinate(-7.8040, 110.3644),
}

type vehicleReport struct {
	vehicle         int
	updates         int
	remainingMeters float64
}

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}

	plan := datastructure.NewRoutePlan(demoRoute, []datastructure.ManeuverStep{
		datastructure.NewManeuverStep("Head South toward Jalan Malioboro", demoRoute[0], 1300),
		datastructure.NewManeuverStep("Continue onto Jalan Malioboro", demoRoute[3], 1100),
		datastructure.NewManeuverStep("you have arrived at your destination", demoRoute[len(demoRoute)-1], 0),
	})

	// seeds are drawn up front, rand.Rand is not safe for the worker goroutines
	rd := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	seeds := make([]uint64, *vehicles+1)
	for i := 1; i <= *vehicles; i++ {
		seeds[i] = rd.Uint64()
	}
	ctx := context.Background()

	pool := concurrent.NewWorkerPool[int, vehicleReport](*vehicles, *vehicles)
	pool.Start(func(vehicle int) vehicleReport {
		return runVehicle(ctx, logger, vehicle, plan, seeds[vehicle])
	})

	for i := 1; i <= *vehicles; i++ {
		pool.AddJob(i)
	}
	pool.Close()
	go pool.Wait()

	for report := range pool.CollectResults() {
		logger.Info("vehicle finished",
			zap.Int("vehicle", report.vehicle),
			zap.Int("updates", report.updates),
			zap.Float64("remaining_meters", report.remainingMeters))
	}
	logger.Info("simulation complete", zap.Int("vehicles", *vehicles))
}

// runVehicle replays the demo route through a full feed and session pair and
// reports how the session tracked it.
func runVehicle(ctx context.Context, logger *zap.Logger, vehicle int,
	plan *datastructure.RoutePlan, seed uint64) vehicleReport {
	session := navigator.NewSession(logger, 0, 0, 0)
	if err := session.Start(plan); err != nil {
		logger.Error("cannot start session", zap.Int("vehicle", vehicle), zap.Error(err))
		return vehicleReport{vehicle: vehicle}
	}

	updates := 0
	session.SetSnapshotListener(func(_ navigator.Snapshot) {
		updates++
	})

	provider := positionfeed.NewSimulatedProvider(logger, plan.GetPoints(), *interval,
		*speed, *jitter, seed)
	feed := positionfeed.NewFeed(logger, provider, 0, func(err error) {
		logger.Warn("position feed degraded", zap.Int("vehicle", vehicle), zap.Error(err))
	})

	if err := feed.Start(ctx, session); err != nil {
		logger.Error("cannot start feed", zap.Int("vehicle", vehicle), zap.Error(err))
		session.Stop()
		return vehicleReport{vehicle: vehicle}
	}

	<-feed.Done()
	feed.Stop()

	snap := session.Snapshot()
	session.Stop()

	return vehicleReport{
		vehicle:         vehicle,
		updates:         updates,
		remainingMeters: snap.GetDistanceToDestinationMeters(),
	}
}
