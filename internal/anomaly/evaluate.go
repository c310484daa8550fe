package anomaly

import (
	"sort"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// MaxAnomalies caps the number of flagged readings an evaluation returns.
const MaxAnomalies = 10

// MachineFailure records a machine whose baseline could not be computed.
type MachineFailure struct {
	MachineID string `json:"machine_id"`
	Message   string `json:"error"`
	err       error
}

func (f MachineFailure) Error() string { return f.Message }

// Unwrap exposes the underlying estimator error.
func (f MachineFailure) Unwrap() error { return f.err }

// Evaluation is the outcome of one evaluation cycle.
type Evaluation struct {
	Threshold float64                 `json:"threshold"`
	Evaluated int                     `json:"evaluated"`
	Flagged   int                     `json:"flagged"`
	Anomalies []domain.FlaggedReading `json:"anomalies"`
	Baselines []domain.Baseline       `json:"baselines"`
	Failures  []MachineFailure        `json:"failures,omitempty"`
}

// Evaluate runs one evaluation cycle: it baselines each machine, classifies every
// reading against its own machine's baseline and returns the flagged readings,
// newest first, capped at MaxAnomalies. A machine whose baseline fails is reported
// in Failures and its readings are skipped; the other machines still evaluate.
func Evaluate(readings []domain.Reading, threshold float64) Evaluation {
	baselines, failed := EstimateAll(readings)

	ev := Evaluation{
		Threshold: threshold,
		Anomalies: []domain.FlaggedReading{},
		Baselines: make([]domain.Baseline, 0, len(baselines)),
	}
	for _, b := range baselines {
		ev.Baselines = append(ev.Baselines, b)
	}
	sort.Slice(ev.Baselines, func(i, j int) bool {
		return ev.Baselines[i].MachineID < ev.Baselines[j].MachineID
	})
	for id, err := range failed {
		ev.Failures = append(ev.Failures, MachineFailure{MachineID: id, Message: err.Error(), err: err})
	}
	sort.Slice(ev.Failures, func(i, j int) bool {
		return ev.Failures[i].MachineID < ev.Failures[j].MachineID
	})

	var flagged []domain.FlaggedReading
	for _, r := range readings {
		b, ok := baselines[r.MachineID]
		if !ok {
			continue
		}
		ev.Evaluated++
		if Classify(r, b, threshold) {
			flagged = append(flagged, domain.FlaggedReading{Reading: r, IsAnomaly: true})
		}
	}
	ev.Flagged = len(flagged)

	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Timestamp.After(flagged[j].Timestamp)
	})
	if len(flagged) > MaxAnomalies {
		flagged = flagged[:MaxAnomalies]
	}
	if flagged != nil {
		ev.Anomalies = flagged
	}
	return ev
}
