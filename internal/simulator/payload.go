package simulator

import (
	"fmt"
	"time"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// Payload is the JSON shape an edge gateway emits for one reading.
type Payload struct {
	MachineID string        `json:"machine_id"`
	Timestamp time.Time     `json:"timestamp"`
	Readings  SensorValues  `json:"readings"`
	Status    domain.Status `json:"status"`
}

// SensorValues are the numeric fields of a Payload.
type SensorValues struct {
	Temperature float64 `json:"temperature"`
	Vibration   float64 `json:"vibration"`
	RPM         float64 `json:"rpm"`
}

// NewPayload converts a reading to its wire shape.
func NewPayload(r domain.Reading) Payload {
	return Payload{
		MachineID: r.MachineID,
		Timestamp: r.Timestamp,
		Readings: SensorValues{
			Temperature: r.Temperature,
			Vibration:   r.Vibration,
			RPM:         r.RPM,
		},
		Status: r.Status,
	}
}

// Reading converts the payload back to a domain reading, rejecting payloads
// that miss an identifier or carry an unknown status.
func (p Payload) Reading() (domain.Reading, error) {
	if p.MachineID == "" {
		return domain.Reading{}, fmt.Errorf("missing machine_id: %w", domain.ErrMalformedReading)
	}
	if !p.Status.Valid() {
		return domain.Reading{}, fmt.Errorf("machine %s: status %q: %w", p.MachineID, p.Status, domain.ErrMalformedReading)
	}
	return domain.Reading{
		MachineID:   p.MachineID,
		Timestamp:   p.Timestamp,
		Temperature: p.Readings.Temperature,
		Vibration:   p.Readings.Vibration,
		RPM:         p.Readings.RPM,
		Status:      p.Status,
	}, nil
}
