// Background worker entry point for ChequeGuard. It keeps the cached pass
// current: record change events from Kafka trigger a recompute, and a ticker
// recomputes anyway so alerts roll over at day boundaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ChequeGuard/internal/bootstrap"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/database/redis"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/internal/interfaces/events"
	httpserver "github.com/turtacn/ChequeGuard/internal/interfaces/http"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/handlers"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultHealthPort = 8081
)

var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and metrics")
	flag.Parse()

	if err := run(*configPath, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, healthPort int) error {
	cfg, fromFile, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	logging.SetDefault(logger)

	logger.Info("Starting ChequeGuard worker",
		logging.String("version", version),
		logging.Duration("refresh_interval", cfg.Worker.RefreshInterval),
		logging.Bool("kafka", cfg.Kafka.Enabled))

	if fromFile {
		if _, err := bootstrap.WatchLogLevel(configPath, logger); err != nil {
			logger.Warn("Config watch disabled", logging.Err(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	trk := infra.TrackingService(cheque.SystemClock{}, "chequeguard-worker")
	refresher := events.NewRefresher(trk, infra.Metrics, logger, cfg.Worker.RefreshInterval)
	if infra.Redis != nil {
		refresher.SetLocker(redis.NewMutex(infra.Redis, "refresh", cfg.Worker.RefreshInterval*9/10))
	}

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(
			bootstrap.ConsumerConfig(cfg.Kafka, cfg.Worker, kafka.TopicRecordChanged),
			infra.Producer, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()
		refresher.Register(consumer)
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}

	serverCfg := cfg.Server
	serverCfg.Port = healthPort
	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, logger, infra.HealthCheckers()...),
		Logger:        logger,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = infra.Collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	httpserver.SetMode(cfg.Server.Mode)
	health := httpserver.NewServer(serverCfg, httpserver.NewRouter(routerCfg), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return refresher.Run(gctx) })
	g.Go(health.Start)
	g.Go(func() error {
		<-gctx.Done()
		return health.Stop(context.Background())
	})

	err = g.Wait()
	logger.Info("ChequeGuard worker stopped")
	return err
}
