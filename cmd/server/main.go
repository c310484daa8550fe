package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckworks/sensor-analytics/internal/cache"
	"github.com/duckworks/sensor-analytics/internal/config"
	"github.com/duckworks/sensor-analytics/internal/handler"
	"github.com/duckworks/sensor-analytics/internal/monitor"
	"github.com/duckworks/sensor-analytics/internal/seed"
	"github.com/duckworks/sensor-analytics/internal/service"
	"github.com/duckworks/sensor-analytics/internal/simulator"
	"github.com/duckworks/sensor-analytics/internal/storage"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	// Metrics
	metrics := monitor.NewMetrics()

	// Reading source
	var (
		repo   storage.Repository
		pinger handler.Pinger
		name   string
	)
	switch cfg.ReadingSource {
	case config.SourceSimulator:
		client := simulator.NewClient(cfg.SimulatorURL, &http.Client{Timeout: 5 * time.Second})
		repo = simulator.NewSource(client, cfg.SimulatorBatchSize)
		pinger = client
		name = "simulator"
		log.Printf("Reading from simulator at %s", cfg.SimulatorURL)
	default:
		db, err := storage.NewPostgresDB(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Connected to PostgreSQL")

		pg := storage.NewPostgresRepository(db)
		seedData(pg, cfg)
		repo = pg
		pinger = handler.PingFunc(db.PingContext)
		name = "database"
	}

	// Cache
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			log.Printf("Redis unavailable, lookups will not be cached: %v", err)
		} else {
			defer client.Close()
			cached := cache.NewRepository(repo, client, cfg.CacheTTL, metrics)
			if err := cached.Invalidate(context.Background()); err != nil {
				log.Printf("Cache invalidate: %v", err)
			}
			repo = cached
			log.Printf("Caching lookups in Redis at %s for %s", cfg.RedisAddr, cfg.CacheTTL)
		}
	}

	// Services
	dashboardSvc := service.NewDashboardService(repo, service.Options{
		DefaultThreshold: cfg.DefaultThreshold,
		DefaultMachines:  cfg.DefaultMachines,
	}, metrics)

	// Handlers
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	healthHandler := handler.NewHealthHandler(pinger, name)

	// Router
	router := handler.NewRouter(dashboardHandler, healthHandler, metrics, metrics.Handler())
	h := handler.Wrap(router, cfg.CORSOrigins)

	// Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Printf("Sensor analytics running on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

func seedData(repo *storage.PostgresRepository, cfg config.Config) {
	if cfg.SeedPerMachine == 0 {
		return
	}
	simCfg := config.LoadSimulator()
	profiles, err := simulator.LoadProfiles(simCfg.ProfilesPath)
	if err != nil {
		log.Printf("Seed profiles: %v", err)
		return
	}
	gen := simulator.NewGenerator(profiles, simCfg.AnomalyRate, simCfg.Seed)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := seed.IfEmpty(ctx, repo, gen, cfg.SeedPerMachine)
	if err != nil {
		log.Printf("Seed data: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Seed data loaded: %d readings", n)
	}
}
