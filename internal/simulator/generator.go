package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// Noise applied around a machine's profile on every reading.
const (
	temperatureSigma = 2.0
	vibrationSigma   = 0.1
	rpmSigma         = 50.0
)

// DefaultAnomalyRate is the share of readings that carry an injected fault.
const DefaultAnomalyRate = 0.05

// Generator produces synthetic readings. It is safe for concurrent use.
type Generator struct {
	profiles    []Profile
	byID        map[string]Profile
	anomalyRate float64

	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

// NewGenerator builds a generator over profiles, or over DefaultProfiles when none
// are given. A zero seed seeds from the clock.
func NewGenerator(profiles []Profile, anomalyRate float64, seed int64) *Generator {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	byID := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		byID[p.MachineID] = p
	}
	return &Generator{
		profiles:    profiles,
		byID:        byID,
		anomalyRate: anomalyRate,
		rng:         rand.New(rand.NewSource(seed)),
		now:         time.Now,
	}
}

// MachineIDs lists the simulated machines in profile order.
func (g *Generator) MachineIDs() []string {
	ids := make([]string, len(g.profiles))
	for i, p := range g.profiles {
		ids[i] = p.MachineID
	}
	return ids
}

// Known reports whether machineID is simulated.
func (g *Generator) Known(machineID string) bool {
	_, ok := g.byID[machineID]
	return ok
}

// Generate returns one reading for machineID stamped with the current time.
// Unknown machines fall back to the first profile.
func (g *Generator) Generate(machineID string) domain.Reading {
	return g.GenerateAt(machineID, g.now())
}

// GenerateAt returns one reading for machineID stamped with ts.
func (g *Generator) GenerateAt(machineID string, ts time.Time) domain.Reading {
	p, ok := g.byID[machineID]
	if !ok {
		p = g.profiles[0]
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	isAnomaly := g.rng.Float64() < g.anomalyRate

	temp := g.gauss(p.Temperature, temperatureSigma)
	vib := g.gauss(p.Vibration, vibrationSigma)
	rpm := g.gauss(p.RPM, rpmSigma)

	status := domain.StatusNormal
	if isAnomaly {
		temp += g.gauss(15, 5)
		vib *= 1.5
		rpm += g.gauss(100, 30)
		status = domain.StatusWarning
	}

	return domain.Reading{
		MachineID:   p.MachineID,
		Timestamp:   ts,
		Temperature: round(temp, 2),
		Vibration:   round(vib, 3),
		RPM:         round(rpm, 0),
		Status:      status,
	}
}

// Batch returns size readings from randomly chosen machines.
func (g *Generator) Batch(size int) []domain.Reading {
	out := make([]domain.Reading, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, g.Generate(g.pick()))
	}
	return out
}

func (g *Generator) pick() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.profiles[g.rng.Intn(len(g.profiles))].MachineID
}

// gauss must be called with g.mu held.
func (g *Generator) gauss(mean, sigma float64) float64 {
	return mean + g.rng.NormFloat64()*sigma
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
