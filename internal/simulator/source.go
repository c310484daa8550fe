package simulator

import (
	"context"

	"github.com/duckworks/sensor-analytics/internal/domain"
	"github.com/duckworks/sensor-analytics/internal/storage"
)

// Source adapts a simulator Client to storage.Repository. Every call pulls one
// fresh batch and answers from that snapshot, so no state outlives a call.
type Source struct {
	client    *Client
	batchSize int
}

// NewSource creates a Source pulling batchSize readings per call.
func NewSource(client *Client, batchSize int) *Source {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Source{client: client, batchSize: batchSize}
}

func (s *Source) snapshot(ctx context.Context) (*storage.MemoryRepository, error) {
	readings, err := s.client.Batch(ctx, s.batchSize)
	if err != nil {
		return nil, err
	}
	return storage.NewMemoryRepository(readings), nil
}

func (s *Source) Fetch(ctx context.Context, machineIDs []string, r domain.TemperatureRange) ([]domain.Reading, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Fetch(ctx, machineIDs, r)
}

func (s *Source) FetchAll(ctx context.Context, machineIDs []string) ([]domain.Reading, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.FetchAll(ctx, machineIDs)
}

func (s *Source) MachineIDs(ctx context.Context) ([]string, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.MachineIDs(ctx)
}

func (s *Source) TemperatureBounds(ctx context.Context) (domain.TemperatureRange, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return domain.TemperatureRange{}, err
	}
	return snap.TemperatureBounds(ctx)
}

func (s *Source) Summary(ctx context.Context, f domain.Filter) (domain.Summary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return snap.Summary(ctx, f)
}

var _ storage.Repository = (*Source)(nil)
