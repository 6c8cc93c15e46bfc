// Command culvert-capacity runs a full batch analysis: it reads a NAACC
// crossing/culvert table, a precipitation series, and a per-point
// watershed statistics table, computes peak flows and culvert capacities,
// evaluates crossings against each return period, and writes the result
// table. Progress is checkpointed so an interrupted run can resume with
// -resume or run.resume in the config.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/civicmapper/culvert-toolkit/internal/adapter/http"
	"github.com/civicmapper/culvert-toolkit/internal/config"
	"github.com/civicmapper/culvert-toolkit/internal/engine"
	"github.com/civicmapper/culvert-toolkit/internal/observability"
	"github.com/civicmapper/culvert-toolkit/internal/runstate"
	"github.com/civicmapper/culvert-toolkit/internal/table"
	"github.com/civicmapper/culvert-toolkit/internal/watershed"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the run configuration file")
	resume := flag.Bool("resume", false, "resume from an existing state file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *resume {
		cfg.Run.Resume = true
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	series, err := config.LoadPrecipitation(cfg.Input.PrecipitationPath, cfg.Run.RainfallAdjustment)
	if err != nil {
		return err
	}

	watersheds, err := table.ReadWatershedTableFile(cfg.Input.WatershedsPath)
	if err != nil {
		return err
	}
	logger.Info("watershed statistics loaded", "points", len(watersheds))

	input, err := table.ReadCulvertsFile(cfg.Input.CulvertsPath)
	if err != nil {
		return err
	}

	var geometry table.GeometryReference
	if cfg.Input.GeometryPath != "" {
		geometry, err = table.ReadGeometryReferenceFile(cfg.Input.GeometryPath)
		if err != nil {
			return err
		}
		logger.Info("geometry correction enabled", "crossings", len(geometry))
	}

	eng := engine.New(engine.Options{
		Resolver: watershed.NewStaticResolver(watersheds),
		Series:   series,
		Store:    runstate.NewStore(cfg.Output.StatePath),
		Logger:   logger,
		Metrics:  metrics,
		Workers:  cfg.Run.Workers,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTP.Enabled {
		srv = httpadapter.NewServer(cfg.HTTP.Addr, eng, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	snap := runstate.ConfigSnapshot{
		InputPath:         cfg.Input.CulvertsPath,
		PrecipitationPath: cfg.Input.PrecipitationPath,
		OutputPath:        cfg.Output.Path,
		StatePath:         cfg.Output.StatePath,
		Workers:           cfg.Run.Workers,
	}
	runErr := eng.Run(ctx, input, geometry, snap, cfg.Run.Resume)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	return runErr
}
