// +build ignore

// seed_data.go wipes sensor_data and reloads it with simulated readings.
// Run with: go run scripts/seed_data.go
package main

import (
	"context"
	"log"
	"time"

	"github.com/duckworks/sensor-analytics/internal/config"
	"github.com/duckworks/sensor-analytics/internal/seed"
	"github.com/duckworks/sensor-analytics/internal/simulator"
	"github.com/duckworks/sensor-analytics/internal/storage"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	simCfg := config.LoadSimulator()

	db, err := storage.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	log.Println("Connected, seeding data...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := db.ExecContext(ctx, "TRUNCATE sensor_data"); err != nil {
		log.Fatalf("truncate: %v", err)
	}

	profiles, err := simulator.LoadProfiles(simCfg.ProfilesPath)
	if err != nil {
		log.Fatalf("profiles: %v", err)
	}
	gen := simulator.NewGenerator(profiles, simCfg.AnomalyRate, simCfg.Seed)

	perMachine := cfg.SeedPerMachine
	if perMachine == 0 {
		perMachine = 200
	}
	repo := storage.NewPostgresRepository(db)
	n, err := seed.IfEmpty(ctx, repo, gen, perMachine)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("Seeded %d readings across %d machines", n, len(gen.MachineIDs()))
}
