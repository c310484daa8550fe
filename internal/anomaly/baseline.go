// Package anomaly computes per-machine baselines and flags readings that deviate
// from them by more than a multiple of the standard deviation.
package anomaly

import (
	"fmt"
	"math"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// Estimate computes the baseline of a non-empty set of readings that share one
// machine ID. Partitioning by machine is the caller's job; the machine ID of the
// first reading names the result.
//
// Standard deviations are sample deviations (N-1). A single reading yields 0.
// Readings with NaN or infinite fields are rejected, as are inputs so far apart
// that the statistics leave the float64 range.
func Estimate(readings []domain.Reading) (domain.Baseline, error) {
	if len(readings) == 0 {
		return domain.Baseline{}, &domain.EmptyInputError{}
	}
	for _, r := range readings {
		if !r.Finite() {
			return domain.Baseline{}, fmt.Errorf("machine %s: %w", r.MachineID, domain.ErrMalformedReading)
		}
	}

	// Welford's running mean keeps large finite inputs from overflowing a plain sum.
	var meanTemp, meanVib, m2Temp, m2Vib float64
	for i, r := range readings {
		k := float64(i + 1)
		dt := r.Temperature - meanTemp
		meanTemp += dt / k
		m2Temp += dt * (r.Temperature - meanTemp)

		dv := r.Vibration - meanVib
		meanVib += dv / k
		m2Vib += dv * (r.Vibration - meanVib)
	}

	b := domain.Baseline{
		MachineID:       readings[0].MachineID,
		MeanTemperature: meanTemp,
		MeanVibration:   meanVib,
		Count:           len(readings),
	}
	if len(readings) > 1 {
		n := float64(len(readings))
		b.StdTemperature = math.Sqrt(m2Temp / (n - 1))
		b.StdVibration = math.Sqrt(m2Vib / (n - 1))
	}
	for _, v := range []float64{b.MeanTemperature, b.StdTemperature, b.MeanVibration, b.StdVibration} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Baseline{}, fmt.Errorf("machine %s: baseline out of range: %w", b.MachineID, domain.ErrMalformedReading)
		}
	}
	return b, nil
}

// EstimateAll partitions readings by machine and estimates one baseline per machine.
// Machines whose estimate fails are reported in the error map and skipped.
func EstimateAll(readings []domain.Reading) (map[string]domain.Baseline, map[string]error) {
	baselines := make(map[string]domain.Baseline)
	var failures map[string]error

	for id, group := range Partition(readings) {
		b, err := Estimate(group)
		if err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[id] = err
			continue
		}
		baselines[id] = b
	}
	return baselines, failures
}

// Partition groups readings by machine ID, keeping the input order within each group.
func Partition(readings []domain.Reading) map[string][]domain.Reading {
	groups := make(map[string][]domain.Reading)
	for _, r := range readings {
		groups[r.MachineID] = append(groups[r.MachineID], r)
	}
	return groups
}
