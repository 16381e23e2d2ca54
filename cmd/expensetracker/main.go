package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/gql"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	boot := cli.BootstrapLogger()
	cli.LoadEnvFile(boot)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, eventsCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}

	services.RunStartupMaintenance(ctx, res.Store, services.MaintenanceOptions{
		Seed:     cfg.SeedOnStartup,
		SeedFile: cfg.SeedFile,
	}, logger)

	publisher, err := factory.CreatePublisher(ctx, eventsCfg)
	if err != nil {
		_ = res.Cleanup()
		return err
	}

	var statsCache *cache.LRUCache[core.Statistics]
	if cfg.StatsCacheTTL > 0 {
		statsCache = cache.NewLRUCache[core.Statistics](1, cfg.StatsCacheTTL)
		cacheManager := cache.NewManager(logger)
		cacheManager.Register(statsCache)
		cacheManager.StartCleanup(cfg.StatsCacheTTL)
		defer cacheManager.Stop()
	}

	svc := services.NewExpenseService(res.Store, publisher, statsCache, logger)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to release resources", applog.FieldError, err.Error())
		}
	}()

	schema, err := gql.NewSchema(svc, gql.Options{Production: cfg.IsProduction(), Logger: logger})
	if err != nil {
		return err
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		ReadHeaderTimeout:  cfg.ReadTimeout,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		IdleTimeout:        cfg.IdleTimeout,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	}, gql.NewHandler(schema, logger), svc)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense tracker server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", cfg.EventsBackend,
			"env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
