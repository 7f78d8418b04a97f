package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mid "CoinPilot/internal/middleware"
	"CoinPilot/internal/usecase"
	pkgch "CoinPilot/pkg/clickhouse"
	"CoinPilot/pkg/config"
	xhttp "CoinPilot/pkg/http"
	applogger "CoinPilot/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.Collector
	retrainer   *usecase.Retrainer
	archive     *mid.ArchivePipeline
	recorder    *usecase.LedgerRecorder
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.Collector,
	retrainer *usecase.Retrainer,
	archive *mid.ArchivePipeline,
	recorder *usecase.LedgerRecorder,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		collector:   collector,
		retrainer:   retrainer,
		archive:     archive,
		recorder:    recorder,
		chClient:    chClient,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithServerLogger(l),
	)

	// Archive flush loop before the collector so warm-start reads hit a
	// running pipeline.
	if a.archive != nil {
		a.archive.Start(ctx)
	}

	if err := a.collector.Start(ctx); err != nil {
		l.Error("collector start error", applogger.Error(err))
		return err
	}
	l.Info("collector started",
		applogger.Strings("symbols", a.cfg.Trading.Symbols),
		applogger.Strings("intervals", a.cfg.Trading.Intervals),
		applogger.String("feed_mode", a.cfg.Feed.Mode),
	)

	if a.retrainer != nil {
		a.retrainer.Start(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(l)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(l *applogger.Logger) error {
	if err := a.collector.Stop(); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	if a.archive != nil {
		a.archive.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.recorder != nil {
		a.recorder.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
