package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iliyamo/cocktail-hub/internal/config"
	"github.com/iliyamo/cocktail-hub/internal/database"
	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/handler"
	"github.com/iliyamo/cocktail-hub/internal/logger"
	"github.com/iliyamo/cocktail-hub/internal/observability"
	"github.com/iliyamo/cocktail-hub/internal/queue"
	"github.com/iliyamo/cocktail-hub/internal/rating"
	"github.com/iliyamo/cocktail-hub/internal/router"
	"github.com/iliyamo/cocktail-hub/internal/service"
	"github.com/iliyamo/cocktail-hub/internal/store"
	"github.com/iliyamo/cocktail-hub/internal/store/memory"
	"github.com/iliyamo/cocktail-hub/internal/store/mysqlstore"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cocktail-hub",
		Short:         "Bartender, cocktail and restaurant review API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "reconcile",
			Short: "Consume failed plans and append them to the reconciliation log",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runReconcile(cmd.Context())
			},
		},
		newRecomputeCmd(),
	)
	return root
}

func newRecomputeCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "recompute-ratings",
		Short: "Rebuild restaurant ratings from customer rates and report drift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecompute(cmd.Context(), fix)
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "overwrite drifted aggregates")
	return cmd
}

// app is the process-wide wiring shared by every command.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	metrics *observability.Metrics
	rdb     *redis.Client
	svc     *service.Services
	closers []func(context.Context) error
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func bootstrap(ctx context.Context, cfg config.Config) (*app, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: log, metrics: observability.NewMetrics()}

	shutdown, err := observability.InitTracing(ctx, log, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	s, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	strategy, err := fanout.ParseStrategy(cfg.CommitStrategy)
	if err != nil {
		a.close()
		return nil, err
	}
	round, err := rating.ParseRounding(cfg.RatingRounding)
	if err != nil {
		a.close()
		return nil, err
	}

	rcfg := config.LoadRedisConfig()
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	if cfg.LockBackend == config.LockRedis || cacheCfg.Enabled || rlCfg.Enabled {
		rdb, err := config.NewRedisClient(ctx, rcfg)
		if err != nil {
			if cfg.LockBackend == config.LockRedis {
				a.close()
				return nil, fmt.Errorf("redis: %w", err)
			}
			log.Warn("redis unavailable; cache and rate limit disabled", "addr", rcfg.Addr, "error", err)
		} else {
			a.rdb = rdb
			a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		}
	}

	var locker rating.Locker = rating.NewKeyedMutex()
	if cfg.LockBackend == config.LockRedis {
		locker = rating.NewRedisLocker(a.rdb, cfg.LockPrefix, cfg.LockTTL)
	}

	rabbit := queue.NewRabbitPublisher(cfg.RabbitURL, log)
	a.closers = append(a.closers, func(context.Context) error { return rabbit.Close() })
	var activity service.ActivityPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := queue.NewKafkaPublisher(queue.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		a.closers = append(a.closers, func(context.Context) error { return kp.Close() })
		activity = kp
	}

	w := fanout.NewWriter(s,
		fanout.WithStrategy(strategy),
		fanout.WithHooks(fanout.NewMetricsHooks(a.metrics)),
		fanout.WithLogger(log),
		fanout.WithTracer(observability.Tracer("fanout")),
	)
	a.svc = service.New(service.Deps{
		Store:    s,
		Writer:   w,
		Engine:   rating.NewEngine(round),
		Locker:   locker,
		Reporter: service.NewReporter(rabbit, activity, a.metrics, log),
		Metrics:  a.metrics,
		Log:      log,
		Auth: service.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			AccessTTLMin: cfg.AccessTTLMin,
			BcryptCost:   cfg.BcryptCost,
		},
	})
	return a, nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if a.cfg.StoreBackend != config.BackendMySQL {
		a.log.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil
	}
	db, err := database.Open(a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	s := mysqlstore.New(db)
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// close runs the closers in reverse order.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown", "error", err)
		}
	}
	a.log.Sync()
}

func runServe(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	opts := router.Options{
		Handler:   handler.New(a.svc, a.log),
		JWTSecret: a.cfg.JWTSecret,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Log:       a.log,
		Metrics:   a.metrics,
		Tracer:    observability.Tracer("http"),
	}
	if a.rdb != nil {
		opts.Redis = a.rdb
	}
	e := router.New(opts)

	addr := ":" + a.cfg.Port
	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", addr, "env", a.cfg.Env, "store", a.cfg.StoreBackend, "strategy", a.cfg.CommitStrategy)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

func runReconcile(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	rl := &queue.ReconciliationLog{Dir: cfg.ReconciliationDir}
	log.Info("reconciliation consumer started", "queue", queue.PlanFailedQueue, "dir", cfg.ReconciliationDir)
	err = queue.StartReconciliationConsumer(ctx, cfg.RabbitURL, rl.Handle, log)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runRecompute(parent context.Context, fix bool) error {
	ctx, stop := signalContext(parent)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := checkRecomputeBackend(cfg); err != nil {
		return err
	}
	a, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	reports, err := a.svc.Ratings.RecomputeAll(ctx, fix)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// checkRecomputeBackend refuses stores that start empty on every run;
// recomputing them would always report nothing.
func checkRecomputeBackend(cfg config.Config) error {
	if cfg.StoreBackend != config.BackendMySQL {
		return fmt.Errorf("recompute-ratings needs STORE_BACKEND=%s, got %q", config.BackendMySQL, cfg.StoreBackend)
	}
	return nil
}
