package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"SegmentCompass/internal/config"
	"SegmentCompass/internal/infrastructure/httpapi"
	"SegmentCompass/internal/infrastructure/lock"
	"SegmentCompass/internal/infrastructure/memory"
	"SegmentCompass/internal/infrastructure/ml"
	"SegmentCompass/internal/infrastructure/scheduler"
	"SegmentCompass/internal/infrastructure/storage"
	"SegmentCompass/internal/infrastructure/telegram"
	"SegmentCompass/internal/logging"
	"SegmentCompass/internal/ports"
	"SegmentCompass/internal/tracing"
	"SegmentCompass/internal/usecase"
)

// store is the full set of persistence ports one backend provides.
type store interface {
	ports.EventSource
	ports.EventRecorder
	ports.FeatureStore
	ports.TierStore
	ports.TransitionLedger
	ports.ProfileStore
	ports.Transactor
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	server    *http.Server
	scheduler *usecase.Scheduler
	closers   []func(context.Context) error
}

// New connects the configured adapters and builds the HTTP server.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, baseLogger.With("component", "tracing"))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	st, err := a.openStore(ctx)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	locker, err := a.openLocker(ctx)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	var classifier ports.Classifier
	if cfg.ML.InferenceURL != "" {
		classifier = ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, cfg.ML.Timeout)
	} else {
		baseLogger.Warn("no classifier configured, only cold-start transitions will apply")
	}

	var notifier ports.TransitionNotifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	policy := usecase.NewGuardrailPolicy(usecase.Thresholds{
		MinConfidence:        cfg.Guardrail.MinConfidence,
		DowngradeRecencyDays: cfg.Guardrail.DowngradeRecencyDays,
		UpgradeCooldownDays:  cfg.Guardrail.UpgradeCooldownDays,
		MaxUpgradeStep:       cfg.Guardrail.MaxUpgradeStep,
		TriggerEvery:         cfg.Guardrail.TriggerEvery,
		TriggerMonetary:      cfg.Guardrail.TriggerMonetary,
	})

	recomputer := usecase.NewRecomputer(usecase.RecomputerDeps{
		Events:            st,
		Recorder:          st,
		Features:          st,
		Tiers:             st,
		Ledger:            st,
		Profiles:          st,
		Tx:                st,
		Classifier:        classifier,
		Locker:            locker,
		Notifier:          notifier,
		Policy:            policy,
		ClassifierTimeout: cfg.ML.Timeout,
		Logger:            baseLogger.With("component", "recompute"),
	})
	simulator := usecase.NewSimulator(usecase.SimulatorDeps{
		Features:          st,
		Tiers:             st,
		Ledger:            st,
		Classifier:        classifier,
		Policy:            policy,
		ClassifierTimeout: cfg.ML.Timeout,
	})
	inspector := usecase.NewInspector(st, st, st, st)
	sweeper := usecase.NewSweeper(st, recomputer, cfg.Sweep.Concurrency, baseLogger.With("component", "sweep"))

	if cfg.Sweep.Interval > 0 {
		a.scheduler = usecase.NewScheduler(
			scheduler.NewIntervalScheduler(cfg.Sweep.Interval, cfg.Sweep.RunOnStart),
			sweeper,
			baseLogger.With("component", "scheduler"),
		)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(recomputer, inspector, simulator, sweeper, baseLogger.With("component", "http"))
	routerOpts := httpapi.RouterOptions{AllowOrigins: cfg.HTTP.AllowOrigins}
	if cfg.Tracing.Enabled {
		routerOpts.ServiceName = cfg.Tracing.ServiceName
	}
	router := httpapi.NewRouter(handler, routerOpts)

	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

func (a *Application) openStore(ctx context.Context) (store, error) {
	if a.cfg.Database.Driver != config.DriverPostgres {
		a.logger.Info("using in-memory store")
		return memory.NewStore(), nil
	}

	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, closeDB(db))

	repo := storage.NewPostgresRepository(db)
	if a.cfg.Database.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return repo, nil
}

func (a *Application) openLocker(ctx context.Context) (ports.Locker, error) {
	if a.cfg.Redis.Addr == "" {
		return lock.NewKeyed(), nil
	}

	rdb, err := lock.Dial(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, closeRedis(rdb))

	return lock.NewRedis(rdb, lock.RedisOptions{TTL: a.cfg.Redis.LockTTL}, a.logger.With("component", "lock")), nil
}

// Run serves HTTP and the optional sweep schedule until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.Close(context.Background())

	g, gctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if a.scheduler != nil {
			if err := a.scheduler.Stop(shutdownCtx); err != nil {
				a.logger.Warn("scheduler stop failed", "error", err)
			}
		}
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases connections in reverse order of acquisition.
func (a *Application) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func closeDB(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}

func closeRedis(rdb *goredis.Client) func(context.Context) error {
	return func(context.Context) error { return rdb.Close() }
}
