package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kwintel/internal/cache"
	"kwintel/internal/config"
	"kwintel/internal/db"
	"kwintel/internal/engine"
	"kwintel/internal/insights"
	"kwintel/internal/jobs"
	"kwintel/internal/metrics"
	"kwintel/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	// Optional YAML overrides for engine thresholds
	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}
	cfg.ApplyYAML(yamlCfg)

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Snapshot cache, shared through Redis when configured
	var store cache.Storage
	if cfg.RedisURL != "" {
		redisStore := cache.NewRedis(cfg.RedisURL)
		defer redisStore.Close()
		store = redisStore
		log.Println("Snapshot cache: redis")
	} else {
		log.Println("Snapshot cache: in-process only. Set REDIS_URL to share snapshots between replicas.")
	}
	snapshots := cache.New(store, database, cfg.SnapshotCacheTTL)

	recorder := metrics.Init(database)

	eng := engine.New(snapshots, engine.Config{
		Workers:    cfg.BatchWorkers,
		MinClicks:  cfg.LeakageMinClicks,
		Thresholds: insights.Thresholds{CostThreshold: cfg.SpendCostThreshold},
		Observer:   recorder,
	})

	if cfg.SnapshotWarmInterval > 0 {
		warmer := jobs.NewSnapshotWarmer(snapshots, cfg.SnapshotWarmInterval)
		go warmer.Start(ctx)
	}

	srv := server.New(cfg)
	srv.RegisterRoutes(server.Deps{
		Engine:      eng,
		Metrics:     database,
		Sink:        database,
		Suggestions: database,
		Health:      database,
	})

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
