package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/alarm"
	"github.com/fieldwatch/fieldwatch/internal/collab"
	"github.com/fieldwatch/fieldwatch/internal/config"
	"github.com/fieldwatch/fieldwatch/internal/connector"
	"github.com/fieldwatch/fieldwatch/internal/ingest"
	"github.com/fieldwatch/fieldwatch/internal/maintenance"
	"github.com/fieldwatch/fieldwatch/internal/metrics"
	"github.com/fieldwatch/fieldwatch/internal/notify"
	"github.com/fieldwatch/fieldwatch/internal/state"
	"github.com/fieldwatch/fieldwatch/internal/store"
	"github.com/fieldwatch/fieldwatch/internal/types"
	"github.com/fieldwatch/fieldwatch/internal/version"
)

func main() {
	configPath := flag.String("config", "/config/fieldwatch.yaml", "Path to service configuration")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("version", version.Version).
		Logger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("config_path", *configPath).
			Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger.Info().
		Str("build", version.String()).
		Str("database", cfg.Database.Path).
		Str("state_metric", cfg.State.Metric).
		Msg("Starting fieldwatch")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open store")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var notifier collab.Notifier
	if cfg.NATS.URL != "" {
		natsNotifier, err := notify.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect notifier")
		}
		defer natsNotifier.Close()
		notifier = natsNotifier
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := alarm.NewEngine(st, st.Alarms(), st, notifier, st.WorkOrders(), st, logger, m)
	if err := engine.Reload(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load alarm rules")
	}

	detector := state.NewDetector(cfg.State.Metric, cfg.State.Threshold, st, logger, m.StateTransitions)
	dispatcher := ingest.NewDispatcher(detector, engine, st, logger, m)

	factory := connector.NewFactory(connector.Options{
		DialTimeout:  cfg.Connector.DialTimeout,
		PollInterval: cfg.Connector.DefaultPollInterval,
		Dropped:      m.ReadingsDropped,
	})
	emit := func(readings []types.CanonicalReading) {
		dispatcher.Ingest(ctx, readings)
	}
	manager := connector.NewManager(factory, emit, logger, connector.ManagerOptions{
		Backoff: connector.Backoff{
			Min: cfg.Connector.BackoffMin,
			Max: cfg.Connector.BackoffMax,
		},
		Restarts: m.ConnectorRestarts,
	})

	reconcile := func() {
		sources, err := st.ListActiveDataSources(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list active data sources")
			return
		}
		manager.Reconcile(sources)
	}
	reconcile()

	// Data source and rule CRUD happens out of process, so changes are
	// picked up by re-reading the configuration store on a fixed interval.
	go func() {
		ticker := time.NewTicker(cfg.Manager.ReconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reconcile()
				if err := engine.Reload(ctx); err != nil {
					logger.Error().Err(err).Msg("Failed to reload alarm rules")
				}
			}
		}
	}()

	scheduler := maintenance.NewScheduler(st, st, st.WorkOrders(), cfg.Scheduler.Interval, logger)
	go scheduler.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.Listen, Handler: mux}
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("Serving health and metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down")
	manager.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown error")
	}

	logger.Info().Msg("Shutdown complete")
}
