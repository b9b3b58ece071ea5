package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NodeFlow/internal/engine"
	internalrepo "NodeFlow/internal/repository"
	"NodeFlow/internal/usecase"
	pkgch "NodeFlow/pkg/clickhouse"
	"NodeFlow/pkg/config"
	xhttp "NodeFlow/pkg/http"
	pkgkafka "NodeFlow/pkg/kafka"
	applogger "NodeFlow/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	proc      *usecase.TradeProcessor
	collector *usecase.TradeCollector
	consumer  *pkgkafka.Consumer
	replay    *usecase.TradeReplayHandler
	persister *usecase.BarPersister
	sessions  *usecase.SessionLevels
	chClient  *pkgch.Client
	journal   *internalrepo.ClickHouseActionJournal

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies. Nil components
// are skipped: collector in replay mode, consumer in websocket mode,
// persister and journal when ClickHouse is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	proc *usecase.TradeProcessor,
	collector *usecase.TradeCollector,
	consumer *pkgkafka.Consumer,
	replay *usecase.TradeReplayHandler,
	persister *usecase.BarPersister,
	sessions *usecase.SessionLevels,
	chClient *pkgch.Client,
	journal *internalrepo.ClickHouseActionJournal,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		proc:      proc,
		collector: collector,
		consumer:  consumer,
		replay:    replay,
		persister: persister,
		sessions:  sessions,
		chClient:  chClient,
		journal:   journal,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.resolveLevels(ctx)

	if a.persister != nil {
		a.persister.Start()
		a.proc.Engine().SetBarSink(a.persister.Sink())
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsEndpoint(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	switch {
	case a.collector != nil:
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("collector start error", applogger.Error(err))
			return err
		}
		a.log.Info("collector started", applogger.String("symbol", a.cfg.Engine.Symbol))
	case a.consumer != nil && a.replay != nil:
		a.consumer.RegisterHandler(a.replay)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.replay.Topic()))
	default:
		a.log.Warn("no inbound source configured")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// resolveLevels loads or computes the session reference levels. A
// missing prior session is tolerated; the breakout machine just stays
// inert until levels arrive.
func (a *App) resolveLevels(ctx context.Context) {
	if a.sessions == nil {
		return
	}
	levels, err := a.sessions.Resolve(ctx, time.Now())
	if err != nil {
		if errors.Is(err, engine.ErrEmptySession) {
			a.log.Warn("no prior session bars, starting without daily levels")
		} else {
			a.log.Warn("resolve daily levels", applogger.Error(err))
		}
		return
	}
	a.proc.SetDailyLevels(levels)
}

// shutdown stops inbound flow first, then flushes the engine so final
// actions still reach the publisher, then releases infrastructure.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.proc.Shutdown(ctx, a.cfg.Engine.Symbol); err != nil {
		a.log.Warn("engine shutdown error", applogger.Error(err))
	}

	if a.persister != nil {
		a.persister.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("journal close error", applogger.Error(err))
		}
	}
	a.proc.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	a.log.RemoveCollector()

	a.log.Info("shutdown complete")
	return nil
}
