// API server entry point for ChequeGuard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/ChequeGuard/internal/bootstrap"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/ChequeGuard/internal/interfaces/http"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/handlers"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/middleware"
)

const defaultConfigPath = "configs/config.yaml"

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int) error {
	cfg, fromFile, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	logging.SetDefault(logger)

	logger.Info("Starting ChequeGuard API server",
		logging.String("version", version),
		logging.Bool("config_file", fromFile),
		logging.Int("http_port", cfg.Server.Port))

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

	clock := cheque.SystemClock{}
	trk := infra.TrackingService(clock, "chequeguard-api")
	rep := infra.ReportingService(trk, clock)

	routerCfg := httpserver.RouterConfig{
		StageHandler:  handlers.NewStageHandler(trk, logger),
		AlertHandler:  handlers.NewAlertHandler(trk, logger),
		ReportHandler: handlers.NewReportHandler(trk, rep, infra.Metrics, logger),
		HealthHandler: handlers.NewHealthHandler(version, logger, infra.HealthCheckers()...),
		Logging:       middleware.DefaultLoggingConfig(),
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        logger,
		Metrics:       infra.Metrics,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = infra.Collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	httpserver.SetMode(cfg.Server.Mode)
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("ChequeGuard API server stopped")
	return nil
}
