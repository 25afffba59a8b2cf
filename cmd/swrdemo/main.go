// Command swrdemo serves a product catalog through swrcache. The catalog
// backend is simulated and slow, so cache hits, stale reads and background
// refreshes are easy to observe on /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/genstore"
	promhooks "github.com/unkn0wn-root/swrcache/hooks/prometheus"
	"github.com/unkn0wn-root/swrcache/internal/config"
	rslocker "github.com/unkn0wn-root/swrcache/locker/redsync"
	swrzap "github.com/unkn0wn-root/swrcache/log/zap"
	"github.com/unkn0wn-root/swrcache/provider"
	bcp "github.com/unkn0wn-root/swrcache/provider/bigcache"
	rp "github.com/unkn0wn-root/swrcache/provider/redis"
	rcp "github.com/unkn0wn-root/swrcache/provider/ristretto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println(config.Usage())
		return
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swrdemo:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var rdb goredis.UniversalClient
	if cfg.NeedsRedis() {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		defer func() { _ = rdb.Close() }()
	}

	opts := swrcache.Options{
		Namespace:      cfg.Cache.Namespace,
		Logger:         swrzap.New(logger),
		Hooks:          promhooks.New(reg, promhooks.Options{Namespace: "swrdemo"}),
		LockTTL:        cfg.Cache.LockTTL,
		ComputeSetCost: func(_ string, raw []byte) int64 { return int64(len(raw)) },
	}
	if opts.Provider, err = newProvider(ctx, cfg, rdb); err != nil {
		return err
	}
	if rdb != nil && cfg.Cache.Provider == config.ProviderRedis {
		// replicas sharing redis must share generations too
		if opts.GenStore, err = genstore.NewRedisGenStore(genstore.RedisConfig{
			Client:    rdb,
			Namespace: cfg.Cache.Namespace,
			TTL:       24 * time.Hour,
		}); err != nil {
			return err
		}
	}
	if cfg.Cache.Locker == config.LockerRedsync {
		if opts.Locker, err = rslocker.New(rdb); err != nil {
			return err
		}
	}

	client, err := swrcache.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("client close", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           newServer(client, newCatalog(cfg.Server.UpstreamLatency), cfg.Cache, reg, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Listen),
			zap.String("provider", cfg.Cache.Provider),
			zap.String("locker", cfg.Cache.Locker))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func newProvider(ctx context.Context, cfg config.Config, rdb goredis.UniversalClient) (provider.Provider, error) {
	switch cfg.Cache.Provider {
	case config.ProviderRedis:
		return rp.New(rp.Config{Client: rdb})
	case config.ProviderBigcache:
		return bcp.New(ctx, bcp.Config{
			LifeWindow:         cfg.Cache.MaxAge + cfg.Cache.StaleTTL,
			CleanWindow:        time.Minute,
			MaxEntriesInWindow: 10_000,
			MaxEntrySize:       512,
			HardMaxCacheSizeMB: 64,
		})
	default:
		return rcp.New(rcp.Config{
			NumCounters: 100_000,
			MaxCost:     64 << 20,
			BufferItems: 64,
		})
	}
}
