package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"railstatus-simulator/internal/api"
	"railstatus-simulator/internal/config"
	"railstatus-simulator/internal/dataset"
	"railstatus-simulator/internal/db"
	"railstatus-simulator/internal/metrics"
	"railstatus-simulator/internal/publisher"
	"railstatus-simulator/internal/rail"
	"railstatus-simulator/internal/sim"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log.Logger = log.Logger.Level(level)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tt, seedOverrides := loadReferenceData(ctx, cfg)

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.StepMinutes, cfg.TickInterval)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Feed publisher
	var pub *publisher.NATSPublisher
	if cfg.NATSEnabled {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatal().Err(err).Msg("nats error")
		}
		defer pub.Close()
	}

	opts := sim.Options{
		TickInterval: cfg.TickInterval,
		StepMinutes:  cfg.StepMinutes,
		BaseClock:    cfg.BaseClock,
		Seed:         cfg.JitterSeed,
		Metrics:      mcol,
	}
	if pub != nil {
		opts.Publisher = pub
	}
	mgr := sim.NewManager(tt, opts)

	// Demo behavior ships as seed overrides applied once at startup; the
	// derivation engine itself carries no per-train special cases.
	for _, ov := range seedOverrides {
		if err := mgr.ApplyOverride(ov.TrainID, ov.Status, ov.DelayMin, ov.NextStation); err != nil {
			log.Warn().Err(err).Str("train", ov.TrainID).Msg("seed override skipped")
		}
	}

	mgr.Start(ctx)

	apiSrv := api.NewServer(mgr, tt).Serve(cfg.APIAddr)

	// Block until context cancelled
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	mgr.Stop()
	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Info().Msg("shutdown complete")
}

// loadReferenceData builds the timetable from the configured source:
// Postgres when a DSN is set, a CSV directory when DATA_DIR is set, the
// embedded seed tables otherwise.
func loadReferenceData(ctx context.Context, cfg *config.Config) (*rail.Timetable, []rail.Override) {
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db open error")
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatal().Err(err).Msg("db ping error")
		}
		tt, err := db.LoadTimetable(ctx, sqlDB)
		if err != nil {
			log.Fatal().Err(err).Msg("load timetable from db")
		}
		log.Info().Int("trains", len(tt.Trains())).Msg("reference data loaded from postgres")
		return tt, nil
	}

	if cfg.DataDir != "" {
		tt, overrides, err := dataset.Load(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("load timetable from csv")
		}
		log.Info().Int("trains", len(tt.Trains())).Str("dir", cfg.DataDir).Msg("reference data loaded from csv")
		return tt, overrides
	}

	tt, overrides, err := dataset.LoadEmbedded()
	if err != nil {
		log.Fatal().Err(err).Msg("load embedded timetable")
	}
	log.Info().Int("trains", len(tt.Trains())).Msg("reference data loaded from embedded seed")
	return tt, overrides
}

// wrapPublisherMetrics adapts the Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
