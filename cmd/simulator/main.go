package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckworks/sensor-analytics/internal/config"
	"github.com/duckworks/sensor-analytics/internal/handler"
	"github.com/duckworks/sensor-analytics/internal/simulator"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadSimulator()

	profiles, err := simulator.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		log.Fatalf("Failed to load profiles: %v", err)
	}
	gen := simulator.NewGenerator(profiles, cfg.AnomalyRate, cfg.Seed)
	log.Printf("Simulating %d machines, anomaly rate %.2f", len(profiles), cfg.AnomalyRate)

	var h http.Handler = simulator.NewServer(gen).Router()
	h = handler.RequestID(h)
	h = handler.Logging(h)
	h = handler.Recovery(h)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Printf("Edge gateway simulator running on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Simulator stopped")
}
