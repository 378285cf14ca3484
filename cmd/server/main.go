package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/internal/config"
	"github.com/diewo77/sales-portal/internal/db"
	"github.com/diewo77/sales-portal/internal/jobs"
	"github.com/diewo77/sales-portal/internal/logger"
	"github.com/diewo77/sales-portal/internal/metrics"
	"github.com/diewo77/sales-portal/internal/policy"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.Init(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Log.Environment,
		ServiceName: "sales-portal",
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	dbConn, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if *migrateOnlyFlag {
		if err := migrate(cfg, dbConn); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations completed successfully")
		return
	}
	if *seedOnlyFlag {
		if err := db.Seed(context.Background(), dbConn, cfg.Pricing.DefaultTable); err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
		log.Info("seeding completed successfully")
		return
	}

	if cfg.App.Migrations || cfg.App.SQLMigrations {
		if err := migrate(cfg, dbConn); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations completed")
	}

	defaultTable, err := services.EnsureDefaultTable(context.Background(), dbConn, cfg.Pricing.DefaultTable)
	if err != nil {
		log.Fatal("default price table", zap.Error(err))
	}
	numbers, err := services.NewNumberGenerator(cfg.Orders.NodeID)
	if err != nil {
		log.Fatal("order number generator", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.Metrics.Prefix)

	runner := jobs.NewRunner(dbConn, jobs.Options{
		Workers:   cfg.Jobs.Workers,
		QueueSize: cfg.Jobs.QueueSize,
		Steps:     jobs.DemoSteps{Delay: cfg.Jobs.StepDelay},
		Logger:    log.Named("jobs"),
		Metrics:   m,
	})
	runner.Start()
	if _, _, err := runner.Recover(context.Background()); err != nil {
		log.Error("job recovery failed", zap.Error(err))
	}

	routerCfg := policy.NewRouterConfig(policy.RouterDeps{
		DB:             dbConn,
		DefaultTable:   defaultTable,
		Numbers:        numbers,
		Runner:         runner,
		Metrics:        m,
		Logger:         log,
		CallerCacheTTL: cfg.Auth.CallerCacheTTL,
	})

	// A session whose user no longer exists is treated as anonymous.
	auth.SetUserVerifier(routerCfg.AuthGate.VerifyUser)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(routerCfg, m, cfg.Jobs),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(ctx); err != nil {
		log.Warn("job runner did not drain before the deadline", zap.Error(err))
	}
	if sqlDB, err := dbConn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped gracefully")
}

// migrate runs the embedded SQL migrations on postgres when enabled, and
// gorm AutoMigrate otherwise.
func migrate(cfg *config.Config, dbConn *gorm.DB) error {
	if cfg.App.SQLMigrations && cfg.Database.Driver == "postgres" {
		return db.RunSQLMigrations(cfg.Database.URL())
	}
	return db.Migrate(dbConn)
}
