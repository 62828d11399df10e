package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendsense/internal/backend"
	"spendsense/internal/cache"
	"spendsense/internal/cli"
	apphttp "spendsense/internal/http"
	"spendsense/internal/insight"
	"spendsense/internal/ledger"
	"spendsense/internal/log"
	"spendsense/internal/middleware/ratelimit"
	"spendsense/internal/services"
	"spendsense/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	factory := backend.NewFactory(logger.WithComponent(log.ComponentApp))

	be, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize report index", log.FieldError, err, log.FieldBackend, backendCfg.Index)
		os.Exit(1)
	}
	gen, err := factory.CreateInsight(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize insight backend", log.FieldError, err, log.FieldBackend, backendCfg.Insight)
		os.Exit(1)
	}

	engine := cli.LoadRules(logger, cfg.RulesFile)
	sessions := session.NewStore(cfg.MaxSessions, cfg.SessionTTL, logger.WithComponent(log.ComponentSession))

	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache))
	janitor.Register(sessions.Cache())
	janitor.Start(time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Sessions: sessions,
		Ledgers:  services.NewLedgerService(engine, ledger.UndatedPolicy(cfg.UndatedPolicy), logger.WithComponent(log.ComponentLedger)),
		Reports:  services.NewReportService(cfg.ReportDir, be.Index, be.Publisher, logger.WithComponent(log.ComponentReport)),
		Insight: insight.NewRequester(gen.Generator,
			insight.WithName(gen.Name),
			insight.WithTimeout(cfg.InsightTimeout),
			insight.WithLogger(logger.WithComponent(log.ComponentInsight))),
		Ready:          be.Ready,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      ratelimit.DefaultConfig(),
		Logger:         logger,
	})

	// Configure server timeouts and limits. Insight calls bound the write
	// timeout.
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = cfg.InsightTimeout + 30*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Info("Starting spendsense server",
			"port", cfg.Port,
			"report_index", backendCfg.Index,
			log.FieldBackend, gen.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cleanup(logger, janitor, be, gen)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	cleanup(logger, janitor, be, gen)
	logger.Info("Server stopped gracefully")
}

func cleanup(logger *log.Logger, janitor *cache.Janitor, be *backend.BackendResult, gen *backend.InsightResult) {
	janitor.Stop()
	for _, fn := range []backend.CleanupFunc{be.Cleanup, gen.Cleanup} {
		if fn == nil {
			continue
		}
		if err := fn(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}
}
