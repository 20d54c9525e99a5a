package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"classifier_backend/core"
	"classifier_backend/db"
	"classifier_backend/metrics"
	"classifier_backend/session"
	"classifier_backend/shutdown"
	"classifier_backend/webui"
)

// recentCapacity is how many predictions /recent keeps in memory.
const recentCapacity = 200

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	host := fs.String("host", "", "address to bind (default all interfaces)")
	port := fs.Int("port", 0, "port to listen on (overrides PORT)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return core.ExitCodeSuccess
		}
		return core.ExitCodeUsage
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeFor(err)
	}
	if *port != 0 {
		cfg.Port = *port
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return core.ExitCodeUsage
		}
	}

	logger, err := newLogger(cfg, zapcore.InfoLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	sm := shutdown.NewManager(logger.Zap().Named("shutdown"))
	sm.Start()
	err = serve(cfg, *host, logger.Zap(), sm)
	if code, ok := err.(serveExit); ok {
		return int(code)
	}
	if err != nil {
		logger.Error("serve failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return core.ExitCodeFor(err)
}

// serveExit carries the exit code chosen by the shutdown manager.
type serveExit int

func (e serveExit) Error() string { return core.ExitCodeName(int(e)) }

// serve loads the model, starts the HTTP server and blocks until sm's
// context ends or the server fails, then shuts everything down in priority
// order. The caller decides how sm is triggered.
func serve(cfg *core.Config, host string, logger *zap.Logger, sm *shutdown.Manager) error {
	logger.Info("configuration loaded",
		zap.String("data", cfg.DataConfigPath),
		zap.String("cfg", cfg.NetworkConfigPath),
		zap.String("weights", cfg.WeightsPath),
		zap.Int("port", cfg.Port),
		zap.Bool("history", cfg.HistoryEnabled()),
		zap.Int("rate_limit", cfg.RateLimit),
		zap.String("version", core.Version))

	recent := webui.NewRecentPredictions(recentCapacity)
	stats := metrics.NewStore(metrics.StoreConfig{Version: core.Version}, time.Now())
	recorders := []session.Recorder{recent, stats}
	serverOpts := []webui.Option{webui.WithMetrics(stats)}

	if cfg.HistoryEnabled() {
		database, err := db.Open(cfg.HistoryDBPath)
		if err != nil {
			return core.ErrInvalidValue(core.EnvHistoryDB, cfg.HistoryDBPath, err.Error())
		}
		sm.Register("history-db", shutdown.PriorityStorage, func(context.Context) error {
			return database.Close()
		})

		repo := db.NewRepository(database, logger.Named("history"))
		writer := db.NewAsyncWriter(db.RepositoryHandler(repo), db.DefaultAsyncWriterConfig(), logger.Named("history"))
		writer.Start()
		sm.Register("history-writer", shutdown.PriorityWriters, func(context.Context) error {
			if !writer.Close() {
				return fmt.Errorf("history writer drain timed out with %d pending", writer.Pending())
			}
			return nil
		})
		recorders = append(recorders, writer)
		serverOpts = append(serverOpts, webui.WithHistory(repo))

		if cfg.HistoryDays > 0 {
			cleanup := db.DefaultCleanupSchedulerConfig()
			cleanup.RetentionDays = cfg.HistoryDays
			cleanup.OnCleanup = func(result db.CleanupResult, err error) {
				if err != nil {
					logger.Warn("history cleanup failed", zap.Error(err))
					return
				}
				logger.Info("history cleanup complete",
					zap.Int64("deleted", result.PredictionsDeleted),
					zap.Duration("duration", result.Duration))
			}
			database.StartCleanupScheduler(sm.Context(), cleanup)
		}
	}

	m, err := loadModel(cfg, logger.Named("session"), session.WithRecorder(session.MultiRecorder(recorders...)))
	if err != nil {
		if herr := sm.Shutdown(); herr != nil {
			logger.Warn("cleanup after failed model load", zap.Error(herr))
		}
		return err
	}
	info, _ := m.Info()
	logger.Info("model loaded",
		zap.Int("classes", info.Classes),
		zap.Int("top", info.Top),
		zap.Bool("hierarchical", info.Hierarchical))
	sm.Register("model", shutdown.PriorityModel, func(context.Context) error {
		m.Dispose()
		return nil
	})

	serverConfig := webui.DefaultServerConfig()
	serverConfig.Host = host
	serverConfig.Port = cfg.Port
	serverConfig.ReadTimeout = cfg.ReadTimeout
	serverConfig.MaxUploadBytes = cfg.MaxUploadBytes
	serverConfig.RateLimit = cfg.RateLimit
	serverConfig.Version = core.Version
	serverConfig.APIKeyHash = cfg.APIKeyHash
	serverOpts = append(serverOpts,
		webui.WithLogger(logger.Named("http")),
		webui.WithRecent(recent),
		webui.WithTracker(sm.Tracker()))

	server, err := webui.NewServer(serverConfig, m, serverOpts...)
	if err != nil {
		_ = sm.Shutdown()
		if errors.Is(err, webui.ErrInvalidKeyHash) {
			return core.ErrInvalidValue(core.EnvAPIKeyHash, "(hidden)", "not a bcrypt hash; create one with 'classifier hashkey'")
		}
		return err
	}
	sm.Register("http", shutdown.PriorityServer, server.Shutdown)
	sm.Register("logs", shutdown.PriorityLogs, func(context.Context) error {
		// stdout reports EINVAL on sync; ignore it
		_ = logger.Sync()
		return nil
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(sm.Context())
	}()

	var runErr error
	select {
	case <-sm.Context().Done():
	case runErr = <-serverErr:
		if runErr != nil {
			logger.Error("http server stopped unexpectedly", zap.Error(runErr))
		}
	}

	start := time.Now()
	if err := sm.Shutdown(); err != nil {
		logger.Warn("shutdown finished with errors", zap.Error(err), zap.Duration("duration", time.Since(start)))
	}
	if runErr != nil {
		return runErr
	}
	if code := sm.ExitCode(); code != core.ExitCodeSuccess {
		return serveExit(code)
	}
	return nil
}
