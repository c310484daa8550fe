package storage

import (
	"context"
	"sort"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// MemoryRepository implements Repository over an immutable in-memory snapshot.
type MemoryRepository struct {
	readings []domain.Reading
}

// NewMemoryRepository copies readings into a snapshot ordered newest first.
func NewMemoryRepository(readings []domain.Reading) *MemoryRepository {
	snap := make([]domain.Reading, len(readings))
	copy(snap, readings)
	sort.SliceStable(snap, func(i, j int) bool {
		return snap[i].Timestamp.After(snap[j].Timestamp)
	})
	return &MemoryRepository{readings: snap}
}

func (m *MemoryRepository) Fetch(_ context.Context, machineIDs []string, tr domain.TemperatureRange) ([]domain.Reading, error) {
	if tr.Low > tr.High {
		return nil, domain.ErrInvalidRange
	}
	want := idSet(machineIDs)
	out := []domain.Reading{}
	for _, r := range m.readings {
		if want[r.MachineID] && tr.Contains(r.Temperature) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepository) FetchAll(_ context.Context, machineIDs []string) ([]domain.Reading, error) {
	want := idSet(machineIDs)
	out := []domain.Reading{}
	for _, r := range m.readings {
		if want[r.MachineID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepository) MachineIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	ids := []string{}
	for _, r := range m.readings {
		if !seen[r.MachineID] {
			seen[r.MachineID] = true
			ids = append(ids, r.MachineID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryRepository) TemperatureBounds(_ context.Context) (domain.TemperatureRange, error) {
	if len(m.readings) == 0 {
		return domain.TemperatureRange{}, domain.ErrNoReadings
	}
	tr := domain.TemperatureRange{Low: m.readings[0].Temperature, High: m.readings[0].Temperature}
	for _, r := range m.readings[1:] {
		if r.Temperature < tr.Low {
			tr.Low = r.Temperature
		}
		if r.Temperature > tr.High {
			tr.High = r.Temperature
		}
	}
	return tr, nil
}

func (m *MemoryRepository) Summary(ctx context.Context, f domain.Filter) (domain.Summary, error) {
	readings, err := m.Fetch(ctx, f.MachineIDs, f.Range)
	if err != nil {
		return domain.Summary{}, err
	}
	var s domain.Summary
	if len(readings) == 0 {
		return s, nil
	}
	for _, r := range readings {
		s.AvgTemperature += r.Temperature
		s.AvgVibration += r.Vibration
		s.AvgRPM += r.RPM
	}
	n := float64(len(readings))
	s.AvgTemperature /= n
	s.AvgVibration /= n
	s.AvgRPM /= n
	s.Count = len(readings)
	return s, nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
