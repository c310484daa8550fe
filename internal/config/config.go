package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourcePostgres  = "postgres"
	SourceSimulator = "simulator"
)

// Config holds the dashboard API settings.
type Config struct {
	Port               string
	DatabaseDSN        string
	ReadingSource      string
	SimulatorURL       string
	SimulatorBatchSize int
	RedisAddr          string
	CacheTTL           time.Duration
	DefaultThreshold   float64
	DefaultMachines    int
	SeedPerMachine     int
	CORSOrigins        []string
}

// SimulatorConfig holds the edge gateway simulator settings.
type SimulatorConfig struct {
	Port         string
	ProfilesPath string
	AnomalyRate  float64
	Seed         int64
}

// LoadDotEnv reads a .env file into the environment if one exists. Variables
// already set in the environment win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !os.IsNotExist(err) {
			log.Printf("Could not read %s: %v", p, err)
		}
	}
}

func Load() Config {
	return Config{
		Port:               envOrDefault("PORT", "8080"),
		DatabaseDSN:        envOrDefault("DATABASE_DSN", "postgres://postgres@localhost:5432/sensors?sslmode=disable"),
		ReadingSource:      parseSource(envOrDefault("READING_SOURCE", SourcePostgres)),
		SimulatorURL:       envOrDefault("SIMULATOR_URL", "http://localhost:8001"),
		SimulatorBatchSize: parseInt(envOrDefault("SIMULATOR_BATCH_SIZE", "500"), 500),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		CacheTTL:           time.Duration(parseInt(envOrDefault("CACHE_TTL_SECONDS", "30"), 30)) * time.Second,
		DefaultThreshold:   parseFloat(envOrDefault("DEFAULT_THRESHOLD", "2.0"), 2.0),
		DefaultMachines:    parseInt(envOrDefault("DEFAULT_MACHINES", "3"), 3),
		SeedPerMachine:     parseInt(envOrDefault("SEED_READINGS_PER_MACHINE", "200"), 200),
		CORSOrigins:        parseList(envOrDefault("CORS_ORIGINS", "*")),
	}
}

func LoadSimulator() SimulatorConfig {
	return SimulatorConfig{
		Port:         envOrDefault("SIM_PORT", "8001"),
		ProfilesPath: os.Getenv("SIM_PROFILES"),
		AnomalyRate:  parseFloat(envOrDefault("SIM_ANOMALY_RATE", "0.05"), 0.05),
		Seed:         int64(parseInt(envOrDefault("SIM_SEED", "0"), 0)),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseSource(s string) string {
	if s == SourceSimulator {
		return SourceSimulator
	}
	return SourcePostgres
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
