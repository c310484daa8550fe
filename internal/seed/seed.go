// Package seed fills an empty store with simulated readings so the dashboard
// has something to show on first start.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/duckworks/sensor-analytics/internal/domain"
	"github.com/duckworks/sensor-analytics/internal/simulator"
)

// DefaultInterval is the spacing between consecutive readings of one machine.
const DefaultInterval = 30 * time.Second

// Store is the part of the repository the seeder writes to.
type Store interface {
	CountReadings(ctx context.Context) (int, error)
	InsertReadings(ctx context.Context, readings []domain.Reading) (int, error)
}

// Readings generates perMachine readings for every simulated machine. The newest
// reading of each machine is stamped end; older ones step back by interval.
func Readings(gen *simulator.Generator, perMachine int, end time.Time, interval time.Duration) []domain.Reading {
	if perMachine <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	ids := gen.MachineIDs()
	out := make([]domain.Reading, 0, perMachine*len(ids))
	for i := perMachine - 1; i >= 0; i-- {
		ts := end.Add(-time.Duration(i) * interval)
		for _, id := range ids {
			out = append(out, gen.GenerateAt(id, ts))
		}
	}
	return out
}

// IfEmpty seeds store with perMachine readings per machine, but only when it holds
// no readings yet. It returns how many readings were written.
func IfEmpty(ctx context.Context, store Store, gen *simulator.Generator, perMachine int) (int, error) {
	if perMachine <= 0 {
		return 0, nil
	}
	n, err := store.CountReadings(ctx)
	if err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	written, err := store.InsertReadings(ctx, Readings(gen, perMachine, time.Now().UTC(), DefaultInterval))
	if err != nil {
		return 0, fmt.Errorf("insert readings: %w", err)
	}
	return written, nil
}
