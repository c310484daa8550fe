package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// ReadingSource supplies sensor readings to an evaluation cycle.
type ReadingSource interface {
	// Fetch returns the readings of the given machines whose temperature lies within r,
	// newest first.
	Fetch(ctx context.Context, machineIDs []string, r domain.TemperatureRange) ([]domain.Reading, error)

	// FetchAll returns every reading of the given machines, newest first.
	FetchAll(ctx context.Context, machineIDs []string) ([]domain.Reading, error)
}

// Repository is the read side the dashboard panels query.
type Repository interface {
	ReadingSource

	// MachineIDs returns the distinct machine IDs, sorted.
	MachineIDs(ctx context.Context) ([]string, error)

	// TemperatureBounds returns the global minimum and maximum temperature.
	TemperatureBounds(ctx context.Context) (domain.TemperatureRange, error)

	// Summary returns the key metrics over the filtered readings.
	Summary(ctx context.Context, f domain.Filter) (domain.Summary, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const readingColumns = `machine_id, recorded_at, temperature, vibration, rpm, status`

func (r *PostgresRepository) Fetch(ctx context.Context, machineIDs []string, tr domain.TemperatureRange) ([]domain.Reading, error) {
	if len(machineIDs) == 0 {
		return []domain.Reading{}, nil
	}
	if tr.Low > tr.High {
		return nil, domain.ErrInvalidRange
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM sensor_data
		WHERE machine_id = ANY($1) AND temperature BETWEEN $2 AND $3
		ORDER BY recorded_at DESC
	`, pq.Array(machineIDs), tr.Low, tr.High)
	if err != nil {
		return nil, domain.SourceError("fetch", fmt.Errorf("query readings: %w", err))
	}
	defer rows.Close()
	return scanReadings(rows, "fetch")
}

func (r *PostgresRepository) FetchAll(ctx context.Context, machineIDs []string) ([]domain.Reading, error) {
	if len(machineIDs) == 0 {
		return []domain.Reading{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+readingColumns+`
		FROM sensor_data
		WHERE machine_id = ANY($1)
		ORDER BY recorded_at DESC
	`, pq.Array(machineIDs))
	if err != nil {
		return nil, domain.SourceError("fetch_all", fmt.Errorf("query readings: %w", err))
	}
	defer rows.Close()
	return scanReadings(rows, "fetch_all")
}

func (r *PostgresRepository) MachineIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT machine_id FROM sensor_data ORDER BY machine_id")
	if err != nil {
		return nil, domain.SourceError("machine_ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.SourceError("machine_ids", fmt.Errorf("scan machine id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.SourceError("machine_ids", err)
	}
	return ids, nil
}

func (r *PostgresRepository) TemperatureBounds(ctx context.Context) (domain.TemperatureRange, error) {
	var low, high sql.NullFloat64
	err := r.db.QueryRowContext(ctx, "SELECT MIN(temperature), MAX(temperature) FROM sensor_data").Scan(&low, &high)
	if err != nil {
		return domain.TemperatureRange{}, domain.SourceError("temperature_bounds", err)
	}
	if !low.Valid || !high.Valid {
		return domain.TemperatureRange{}, domain.ErrNoReadings
	}
	return domain.TemperatureRange{Low: low.Float64, High: high.Float64}, nil
}

func (r *PostgresRepository) Summary(ctx context.Context, f domain.Filter) (domain.Summary, error) {
	if len(f.MachineIDs) == 0 {
		return domain.Summary{}, nil
	}
	if f.Range.Low > f.Range.High {
		return domain.Summary{}, domain.ErrInvalidRange
	}

	var avgTemp, avgVib, avgRPM sql.NullFloat64
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(temperature), AVG(vibration), AVG(rpm), COUNT(*)
		FROM sensor_data
		WHERE machine_id = ANY($1) AND temperature BETWEEN $2 AND $3
	`, pq.Array(f.MachineIDs), f.Range.Low, f.Range.High).Scan(&avgTemp, &avgVib, &avgRPM, &count)
	if err != nil {
		return domain.Summary{}, domain.SourceError("summary", err)
	}
	return domain.Summary{
		AvgTemperature: avgTemp.Float64,
		AvgVibration:   avgVib.Float64,
		AvgRPM:         avgRPM.Float64,
		Count:          count,
	}, nil
}

// InsertReadings stores readings in a single transaction and returns how many were written.
func (r *PostgresRepository) InsertReadings(ctx context.Context, readings []domain.Reading) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sensor_data (machine_id, recorded_at, temperature, vibration, rpm, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rd := range readings {
		if _, err := stmt.ExecContext(ctx, rd.MachineID, rd.Timestamp, rd.Temperature, rd.Vibration, rd.RPM, string(rd.Status)); err != nil {
			return 0, fmt.Errorf("insert reading for %s: %w", rd.MachineID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(readings), nil
}

// CountReadings returns the number of stored readings.
func (r *PostgresRepository) CountReadings(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sensor_data").Scan(&n)
	return n, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanReadings(rows rowScanner, op string) ([]domain.Reading, error) {
	readings := []domain.Reading{}
	for rows.Next() {
		var (
			machineID      string
			ts             time.Time
			temp, vib, rpm sql.NullFloat64
			status         sql.NullString
		)
		if err := rows.Scan(&machineID, &ts, &temp, &vib, &rpm, &status); err != nil {
			return nil, domain.SourceError(op, fmt.Errorf("scan reading: %w", err))
		}
		rd, err := toReading(machineID, ts, temp, vib, rpm, status)
		if err != nil {
			return nil, domain.SourceError(op, err)
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.SourceError(op, err)
	}
	return readings, nil
}

func toReading(machineID string, ts time.Time, temp, vib, rpm sql.NullFloat64, status sql.NullString) (domain.Reading, error) {
	for _, v := range []sql.NullFloat64{temp, vib, rpm} {
		if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
			return domain.Reading{}, fmt.Errorf("machine %s at %s: %w", machineID, ts.Format(time.RFC3339), domain.ErrMalformedReading)
		}
	}
	st := domain.StatusNormal
	if status.Valid {
		st = domain.Status(status.String)
	}
	if !st.Valid() {
		return domain.Reading{}, fmt.Errorf("machine %s: status %q: %w", machineID, status.String, domain.ErrMalformedReading)
	}
	return domain.Reading{
		MachineID:   machineID,
		Timestamp:   ts,
		Temperature: temp.Float64,
		Vibration:   vib.Float64,
		RPM:         rpm.Float64,
		Status:      st,
	}, nil
}
