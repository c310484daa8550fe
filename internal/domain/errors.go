package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a temperature range has Low > High.
	ErrInvalidRange = errors.New("invalid temperature range: low must not exceed high")

	// ErrNoReadings is returned when the source holds no readings at all.
	ErrNoReadings = errors.New("no readings available")

	// ErrMalformedReading is returned when a source row carries NULL or non-finite values.
	ErrMalformedReading = errors.New("malformed reading")
)

// EmptyInputError is returned when a baseline is requested over zero readings.
type EmptyInputError struct {
	MachineID string
}

func (e *EmptyInputError) Error() string {
	if e.MachineID == "" {
		return "baseline requires at least one reading"
	}
	return fmt.Sprintf("baseline for machine %s requires at least one reading", e.MachineID)
}

// DataSourceError reports that the reading source was unreachable or returned malformed data.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// SourceError wraps err as a DataSourceError for op. A nil err stays nil and an
// existing DataSourceError is returned unchanged.
func SourceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dse *DataSourceError
	if errors.As(err, &dse) {
		return err
	}
	return &DataSourceError{Op: op, Err: err}
}
