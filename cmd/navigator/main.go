package main

import (
	"context"
	"flag"
	"time"

	"github.com/ELMGHARU/detection-tracker/pkg/engine"
	"github.com/ELMGHARU/detection-tracker/pkg/engine/navigator"
	"github.com/ELMGHARU/detection-tracker/pkg/http"
	"github.com/ELMGHARU/detection-tracker/pkg/http/usecases"
	"github.com/ELMGHARU/detection-tracker/pkg/logger"
	"github.com/ELMGHARU/detection-tracker/pkg/routeservice"
	"github.com/ELMGHARU/detection-tracker/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	useRateLimit    = flag.Bool("rate_limit", false, "apply the shared token bucket to the REST API")
	sweeperSchedule = flag.String("sweeper_schedule", "0 */5 * * * *", "cron spec (with seconds) for stale session eviction")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}

	if err := util.ReadConfig(); err != nil {
		logger.Warn("no config file found, running on defaults", zap.Error(err))
	}

	viper.SetDefault("OSRM_BASE_URL", "http://localhost:5000")
	viper.SetDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("SPEED_PROFILE", "driving")
	viper.SetDefault("ROUTE_TIMEOUT", "10s")
	viper.SetDefault("ROUTE_CACHE_SIZE", 4096)
	viper.SetDefault("MIN_MOVEMENT_METERS", navigator.DefaultMinMovementMeters)
	viper.SetDefault("MANEUVER_ADVANCE_RADIUS_METERS", navigator.DefaultAdvanceRadiusMeters)
	viper.SetDefault("SESSION_STALE_AFTER", "30m")

	osrm := routeservice.NewOSRMClient(logger,
		viper.GetString("OSRM_BASE_URL"), viper.GetString("SPEED_PROFILE"),
		viper.GetDuration("ROUTE_TIMEOUT"))
	routes, err := routeservice.NewCachedClient(logger, osrm, viper.GetInt("ROUTE_CACHE_SIZE"))
	if err != nil {
		panic(err)
	}

	geocoder := routeservice.NewNominatimClient(logger,
		viper.GetString("NOMINATIM_BASE_URL"), "detection-tracker/1.0", 10*time.Second)

	fallbackSpeed := navigator.FallbackSpeedForProfile(viper.GetString("SPEED_PROFILE"))
	navigationEngine := engine.NewEngine(logger, routes,
		viper.GetFloat64("MIN_MOVEMENT_METERS"), fallbackSpeed,
		viper.GetFloat64("MANEUVER_ADVANCE_RADIUS_METERS"),
		viper.GetDuration("SESSION_STALE_AFTER"))
	if err := navigationEngine.StartSweeper(*sweeperSchedule); err != nil {
		panic(err)
	}

	api := http.NewServer(logger)

	navigationService := usecases.NewNavigationService(logger, navigationEngine, geocoder)

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}
	api.Use(ctx, logger, *useRateLimit, navigationService)

	signal := http.GracefulShutdown()

	logger.Info("Navigation Tracking Server Stopped", zap.String("signal", signal.String()))
	cleanup()
	navigationEngine.Close()
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
