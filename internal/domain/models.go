package domain

import (
	"math"
	"time"
)

// Status is the health flag an edge gateway attaches to a reading.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
)

// Valid reports whether s is one of the known reading statuses.
func (s Status) Valid() bool {
	return s == StatusNormal || s == StatusWarning
}

// Reading is one timestamped sensor sample from a machine.
type Reading struct {
	MachineID   string    `json:"machine_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Vibration   float64   `json:"vibration"`
	RPM         float64   `json:"rpm"`
	Status      Status    `json:"status"`
}

// Finite reports whether every numeric field of the reading is a real number.
func (r Reading) Finite() bool {
	for _, v := range []float64{r.Temperature, r.Vibration, r.RPM} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Baseline is the per-machine statistical reference used for anomaly flagging.
// It is valid only for the snapshot of readings it was computed from.
type Baseline struct {
	MachineID       string  `json:"machine_id"`
	MeanTemperature float64 `json:"mean_temperature"`
	StdTemperature  float64 `json:"std_temperature"`
	MeanVibration   float64 `json:"mean_vibration"`
	StdVibration    float64 `json:"std_vibration"`
	Count           int     `json:"count"`
}

// TemperatureRange is an inclusive [Low, High] temperature filter.
type TemperatureRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether t lies within the range, bounds included.
func (r TemperatureRange) Contains(t float64) bool {
	return t >= r.Low && t <= r.High
}

// Summary holds the key metrics shown above the charts.
type Summary struct {
	AvgTemperature float64 `json:"avg_temperature"`
	AvgVibration   float64 `json:"avg_vibration"`
	AvgRPM         float64 `json:"avg_rpm"`
	Count          int     `json:"count"`
}

// Filter selects the readings a dashboard panel works on.
type Filter struct {
	MachineIDs []string         `json:"machine_ids"`
	Range      TemperatureRange `json:"temperature_range"`
}

// TrendPoint is one sample of the temperature trend chart.
type TrendPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	MachineID   string    `json:"machine_id"`
}

// ScatterPoint is one sample of the sensor analysis chart.
type ScatterPoint struct {
	Vibration   float64 `json:"vibration"`
	RPM         float64 `json:"rpm"`
	Temperature float64 `json:"temperature"`
	MachineID   string  `json:"machine_id"`
}

// FlaggedReading pairs a reading with its anomaly verdict.
type FlaggedReading struct {
	Reading
	IsAnomaly bool `json:"is_anomaly"`
}
