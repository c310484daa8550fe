package storage

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func sampleReadings() []domain.Reading {
	return []domain.Reading{
		{MachineID: "MACHINE_002", Timestamp: base, Temperature: 64.5, Vibration: 0.41, RPM: 1190, Status: domain.StatusNormal},
		{MachineID: "MACHINE_001", Timestamp: base.Add(time.Minute), Temperature: 70.2, Vibration: 0.52, RPM: 1010, Status: domain.StatusNormal},
		{MachineID: "MACHINE_001", Timestamp: base.Add(3 * time.Minute), Temperature: 86.9, Vibration: 0.78, RPM: 1120, Status: domain.StatusWarning},
		{MachineID: "MACHINE_003", Timestamp: base.Add(2 * time.Minute), Temperature: 75.3, Vibration: 0.6, RPM: 805, Status: domain.StatusNormal},
	}
}

func TestToReading_Valid(t *testing.T) {
	rd, err := toReading("MACHINE_001", base,
		sql.NullFloat64{Float64: 70, Valid: true},
		sql.NullFloat64{Float64: 0.5, Valid: true},
		sql.NullFloat64{Float64: 1000, Valid: true},
		sql.NullString{String: "warning", Valid: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Status != domain.StatusWarning || rd.Temperature != 70 {
		t.Errorf("unexpected reading: %+v", rd)
	}
}

func TestToReading_Malformed(t *testing.T) {
	ok := sql.NullFloat64{Float64: 1, Valid: true}
	cases := map[string][4]interface{}{
		"null temperature": {sql.NullFloat64{}, ok, ok, sql.NullString{String: "normal", Valid: true}},
		"nan vibration":    {ok, sql.NullFloat64{Float64: math.NaN(), Valid: true}, ok, sql.NullString{String: "normal", Valid: true}},
		"inf rpm":          {ok, ok, sql.NullFloat64{Float64: math.Inf(1), Valid: true}, sql.NullString{String: "normal", Valid: true}},
		"unknown status":   {ok, ok, ok, sql.NullString{String: "exploded", Valid: true}},
	}
	for name, c := range cases {
		_, err := toReading("m", base, c[0].(sql.NullFloat64), c[1].(sql.NullFloat64), c[2].(sql.NullFloat64), c[3].(sql.NullString))
		if !errors.Is(err, domain.ErrMalformedReading) {
			t.Errorf("%s: expected ErrMalformedReading, got %v", name, err)
		}
	}
}

func TestToReading_NullStatusDefaultsNormal(t *testing.T) {
	ok := sql.NullFloat64{Float64: 1, Valid: true}
	rd, err := toReading("m", base, ok, ok, ok, sql.NullString{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rd.Status != domain.StatusNormal {
		t.Errorf("expected normal, got %s", rd.Status)
	}
}

type fakeRows struct {
	n      int
	scanFn func(dest ...interface{}) error
	err    error
}

func (f *fakeRows) Next() bool {
	if f.n == 0 {
		return false
	}
	f.n--
	return true
}
func (f *fakeRows) Scan(dest ...interface{}) error { return f.scanFn(dest...) }
func (f *fakeRows) Err() error                     { return f.err }

func TestScanReadings_WrapsAsDataSourceError(t *testing.T) {
	rows := &fakeRows{n: 1, scanFn: func(...interface{}) error { return errors.New("bad column") }}
	_, err := scanReadings(rows, "fetch")

	var dse *domain.DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
	if dse.Op != "fetch" {
		t.Errorf("expected op fetch, got %s", dse.Op)
	}
}

func TestScanReadings_RowsErr(t *testing.T) {
	rows := &fakeRows{err: errors.New("connection reset")}
	_, err := scanReadings(rows, "fetch_all")

	var dse *domain.DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
}

// --- MemoryRepository ---

func TestMemoryRepository_FetchFiltersAndOrders(t *testing.T) {
	repo := NewMemoryRepository(sampleReadings())
	got, err := repo.Fetch(context.Background(), []string{"MACHINE_001", "MACHINE_003"}, domain.TemperatureRange{Low: 70, High: 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if got[0].MachineID != "MACHINE_003" || got[1].MachineID != "MACHINE_001" {
		t.Errorf("expected newest first, got %s then %s", got[0].MachineID, got[1].MachineID)
	}
}

func TestMemoryRepository_FetchInvalidRange(t *testing.T) {
	repo := NewMemoryRepository(sampleReadings())
	_, err := repo.Fetch(context.Background(), []string{"MACHINE_001"}, domain.TemperatureRange{Low: 90, High: 10})
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestMemoryRepository_FetchAll(t *testing.T) {
	repo := NewMemoryRepository(sampleReadings())
	got, _ := repo.FetchAll(context.Background(), []string{"MACHINE_001"})
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if !got[0].Timestamp.After(got[1].Timestamp) {
		t.Error("expected newest first")
	}

	none, _ := repo.FetchAll(context.Background(), nil)
	if none == nil || len(none) != 0 {
		t.Error("expected empty, non-nil result for no machines")
	}
}

func TestMemoryRepository_MachineIDsAndBounds(t *testing.T) {
	repo := NewMemoryRepository(sampleReadings())

	ids, _ := repo.MachineIDs(context.Background())
	want := []string{"MACHINE_001", "MACHINE_002", "MACHINE_003"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("id %d: expected %s, got %s", i, want[i], ids[i])
		}
	}

	bounds, err := repo.TemperatureBounds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bounds.Low != 64.5 || bounds.High != 86.9 {
		t.Errorf("unexpected bounds: %+v", bounds)
	}
}

func TestMemoryRepository_EmptyBounds(t *testing.T) {
	repo := NewMemoryRepository(nil)
	if _, err := repo.TemperatureBounds(context.Background()); !errors.Is(err, domain.ErrNoReadings) {
		t.Errorf("expected ErrNoReadings, got %v", err)
	}
}

func TestMemoryRepository_Summary(t *testing.T) {
	repo := NewMemoryRepository(sampleReadings())
	s, err := repo.Summary(context.Background(), domain.Filter{
		MachineIDs: []string{"MACHINE_001"},
		Range:      domain.TemperatureRange{Low: 0, High: 100},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Count != 2 {
		t.Errorf("expected count 2, got %d", s.Count)
	}
	if math.Abs(s.AvgTemperature-78.55) > 1e-9 {
		t.Errorf("expected avg temperature 78.55, got %v", s.AvgTemperature)
	}
	if math.Abs(s.AvgRPM-1065) > 1e-9 {
		t.Errorf("expected avg rpm 1065, got %v", s.AvgRPM)
	}
}

func TestMemoryRepository_SnapshotIsCopied(t *testing.T) {
	in := sampleReadings()
	repo := NewMemoryRepository(in)
	in[0].Temperature = -999

	bounds, _ := repo.TemperatureBounds(context.Background())
	if bounds.Low == -999 {
		t.Error("repository should not alias caller's slice")
	}
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
