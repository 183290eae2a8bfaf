package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"signalengine/src/config"
	"signalengine/src/connectors"
	"signalengine/src/database"
	"signalengine/src/engine"
	"signalengine/src/handler"
	"signalengine/src/metrics"
	"signalengine/src/report"
	"signalengine/src/repository"
	"signalengine/src/server"
	"signalengine/src/stability"
)

// Runner wires the engine to Binance, Discord, the database and the HTTP
// server, and runs until SIGINT or SIGTERM.
type Runner struct {
	// Profile overrides PROFILE and the file's active_profile when set.
	Profile string
	// Source overrides CANDLE_SOURCE when set.
	Source string
	Log    *logrus.Entry
}

func (r *Runner) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	return r.Run(ctx)
}

func (r *Runner) Run(ctx context.Context) error {
	if r.Log == nil {
		r.Log = logrus.WithField("cmd", "engine")
	}
	env := config.GetConfig()
	profile := env.Profile
	if r.Profile != "" {
		profile = r.Profile
	}
	if r.Source != "" {
		env.CandleSource = r.Source
	}

	strategy, err := config.LoadFile(env.Path, profile)
	if err != nil {
		return err
	}

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		r.Log.WithError(err).Error("Failed to connect to main database")
		return err
	}

	conn := connectors.GetConfig()
	source, err := candleSource(env, conn, r.Log)
	if err != nil {
		return err
	}
	stateStore, err := newStateStore(env)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	trades := repository.NewTradeLogRepository()
	deps := engine.Deps{
		Source:     source,
		Notifier:   connectors.NewDiscordNotifier(conn, r.Log),
		StateStore: stateStore,
		Audits:     repository.NewSignalAuditRepository(),
		Trades:     trades,
		Exceptions: repository.NewExceptionRepository(),
		Metrics:    metrics.New(reg),
		ReportDir:  report.GetConfig().Dir,
		Profile:    strategy.ActiveProfile,
	}
	if env.ArchiveCandles && env.CandleSource != config.CandleSourceArchive {
		deps.Archive = repository.NewCandleRepository()
	}

	eng, err := engine.New(strategy, deps, r.Log)
	if err != nil {
		return err
	}

	r.Log.WithFields(logrus.Fields{
		"profile":  strategy.ActiveProfile,
		"symbols":  strategy.Symbols,
		"source":   env.CandleSource,
		"state":    env.StateBackend,
		"interval": strategy.Interval().String(),
	}).Info("Starting signal engine")

	router := server.NewRouter(reg, server.Routes{
		Book:   handler.BookHandler(eng),
		Trades: handler.TradesHandler(trades),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serverErr := make(chan error, 1)
	go func() {
		err := server.StartServer(ctx, server.GetConfig().Port, router)
		if err != nil {
			cancel()
		}
		serverErr <- err
	}()

	if err := eng.Run(ctx); err != nil {
		r.Log.WithError(err).Error("Engine loop failed")
		cancel()
		<-serverErr
		return err
	}
	cancel()
	return <-serverErr
}

func candleSource(env *config.Config, conn connectors.Config, log *logrus.Entry) (engine.CandleSource, error) {
	switch env.CandleSource {
	case config.CandleSourceBinance, "":
		return connectors.NewKlineProvider(conn, log), nil
	case config.CandleSourceArchive:
		return repository.NewCandleRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported CANDLE_SOURCE %q", env.CandleSource)
	}
}

func newStateStore(env *config.Config) (stability.Store, error) {
	switch env.StateBackend {
	case config.StateBackendFile, "":
		if env.StatePath == "" {
			return nil, errors.New("STATE_PATH is required for the file state backend")
		}
		return stability.NewFileStore(env.StatePath), nil
	case config.StateBackendDB:
		return repository.NewStabilityRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported STATE_BACKEND %q", env.StateBackend)
	}
}
