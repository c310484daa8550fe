package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/duckworks/sensor-analytics/internal/anomaly"
	"github.com/duckworks/sensor-analytics/internal/domain"
	"github.com/duckworks/sensor-analytics/internal/storage"
)

// Panel names used as keys of Dashboard.Errors.
const (
	PanelControls  = "controls"
	PanelSummary   = "summary"
	PanelTrends    = "trends"
	PanelScatter   = "scatter"
	PanelAnomalies = "anomalies"
)

// Recorder receives evaluation and panel outcomes. monitor.Metrics implements it.
type Recorder interface {
	RecordEvaluation(flagged, failures int)
	RecordPanelError(panel string)
}

// Options tune the defaults applied when a request leaves a control unset.
type Options struct {
	DefaultThreshold float64
	DefaultMachines  int
}

// DefaultOptions mirror the stock dashboard controls.
func DefaultOptions() Options {
	return Options{DefaultThreshold: 2.0, DefaultMachines: 3}
}

// Query is a dashboard request. Nil fields take the service defaults.
type Query struct {
	MachineIDs []string
	Range      *domain.TemperatureRange
	Threshold  *float64
}

// Dashboard is the full set of panels for one refresh. A failing panel leaves
// its field nil and a message under Errors; the other panels are unaffected.
type Dashboard struct {
	Filter    domain.Filter         `json:"filter"`
	Threshold float64               `json:"threshold"`
	Summary   *domain.Summary       `json:"summary,omitempty"`
	Trends    []domain.TrendPoint   `json:"trends,omitempty"`
	Scatter   []domain.ScatterPoint `json:"scatter,omitempty"`
	Anomalies *anomaly.Evaluation   `json:"anomalies,omitempty"`
	Errors    map[string]string     `json:"errors,omitempty"`
}

// DashboardService serves the dashboard panels from a Repository.
type DashboardService struct {
	repo storage.Repository
	opts Options
	rec  Recorder
}

// NewDashboardService creates a new DashboardService. rec may be nil.
func NewDashboardService(repo storage.Repository, opts Options, rec Recorder) *DashboardService {
	if opts.DefaultMachines <= 0 {
		opts.DefaultMachines = DefaultOptions().DefaultMachines
	}
	return &DashboardService{repo: repo, opts: opts, rec: rec}
}

// Machines returns every known machine ID, sorted.
func (s *DashboardService) Machines(ctx context.Context) ([]string, error) {
	return s.repo.MachineIDs(ctx)
}

// TemperatureBounds returns the full temperature range of the store.
func (s *DashboardService) TemperatureBounds(ctx context.Context) (domain.TemperatureRange, error) {
	return s.repo.TemperatureBounds(ctx)
}

// ResolveMachines returns ids, or the first DefaultMachines known machines when
// ids is empty.
func (s *DashboardService) ResolveMachines(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) > 0 {
		return ids, nil
	}
	all, err := s.repo.MachineIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	if len(all) > s.opts.DefaultMachines {
		all = all[:s.opts.DefaultMachines]
	}
	return all, nil
}

// ResolveFilter fills unset controls: the first DefaultMachines machines and the
// full temperature range.
func (s *DashboardService) ResolveFilter(ctx context.Context, q Query) (domain.Filter, error) {
	ids, err := s.ResolveMachines(ctx, q.MachineIDs)
	if err != nil {
		return domain.Filter{}, err
	}
	f := domain.Filter{MachineIDs: ids}

	if q.Range != nil {
		if q.Range.Low > q.Range.High {
			return domain.Filter{}, domain.ErrInvalidRange
		}
		f.Range = *q.Range
		return f, nil
	}
	bounds, err := s.repo.TemperatureBounds(ctx)
	if errors.Is(err, domain.ErrNoReadings) {
		return f, nil
	}
	if err != nil {
		return domain.Filter{}, fmt.Errorf("temperature bounds: %w", err)
	}
	f.Range = bounds
	return f, nil
}

// Threshold returns t or the configured default when t is nil.
func (s *DashboardService) Threshold(t *float64) float64 {
	if t == nil {
		return s.opts.DefaultThreshold
	}
	return *t
}

// Summary returns the key metrics over the filter.
func (s *DashboardService) Summary(ctx context.Context, f domain.Filter) (domain.Summary, error) {
	return s.repo.Summary(ctx, f)
}

// Trends returns the temperature series over the filter, newest first.
func (s *DashboardService) Trends(ctx context.Context, f domain.Filter) ([]domain.TrendPoint, error) {
	readings, err := s.repo.Fetch(ctx, f.MachineIDs, f.Range)
	if err != nil {
		return nil, err
	}
	points := make([]domain.TrendPoint, len(readings))
	for i, r := range readings {
		points[i] = domain.TrendPoint{Timestamp: r.Timestamp, Temperature: r.Temperature, MachineID: r.MachineID}
	}
	return points, nil
}

// Scatter returns the rpm/vibration/temperature points over the filter.
func (s *DashboardService) Scatter(ctx context.Context, f domain.Filter) ([]domain.ScatterPoint, error) {
	readings, err := s.repo.Fetch(ctx, f.MachineIDs, f.Range)
	if err != nil {
		return nil, err
	}
	points := make([]domain.ScatterPoint, len(readings))
	for i, r := range readings {
		points[i] = domain.ScatterPoint{Vibration: r.Vibration, RPM: r.RPM, Temperature: r.Temperature, MachineID: r.MachineID}
	}
	return points, nil
}

// Anomalies runs one evaluation cycle over every reading of the given machines.
// Baselines use the whole history of each machine, not the temperature filter.
func (s *DashboardService) Anomalies(ctx context.Context, machineIDs []string, threshold float64) (*anomaly.Evaluation, error) {
	readings, err := s.repo.FetchAll(ctx, machineIDs)
	if err != nil {
		return nil, err
	}
	ev := anomaly.Evaluate(readings, threshold)
	if s.rec != nil {
		s.rec.RecordEvaluation(ev.Flagged, len(ev.Failures))
	}
	return &ev, nil
}

// Dashboard loads every panel. Each panel is isolated: a failure is reported
// under Errors and never aborts the others.
func (s *DashboardService) Dashboard(ctx context.Context, q Query) *Dashboard {
	d := &Dashboard{Threshold: s.Threshold(q.Threshold)}

	f, err := s.ResolveFilter(ctx, q)
	if err != nil {
		s.fail(d, PanelControls, err)
		f = domain.Filter{MachineIDs: q.MachineIDs}
		if q.Range != nil && q.Range.Low <= q.Range.High {
			f.Range = *q.Range
		}
	}
	d.Filter = f

	if sum, err := s.Summary(ctx, f); err != nil {
		s.fail(d, PanelSummary, err)
	} else {
		d.Summary = &sum
	}

	if trends, err := s.Trends(ctx, f); err != nil {
		s.fail(d, PanelTrends, err)
	} else {
		d.Trends = trends
	}

	if scatter, err := s.Scatter(ctx, f); err != nil {
		s.fail(d, PanelScatter, err)
	} else {
		d.Scatter = scatter
	}

	if ev, err := s.Anomalies(ctx, f.MachineIDs, d.Threshold); err != nil {
		s.fail(d, PanelAnomalies, err)
	} else {
		d.Anomalies = ev
	}
	return d
}

func (s *DashboardService) fail(d *Dashboard, panel string, err error) {
	if d.Errors == nil {
		d.Errors = make(map[string]string)
	}
	d.Errors[panel] = UserMessage(err)
	if s.rec != nil {
		s.rec.RecordPanelError(panel)
	}
}

// UserMessage renders err for display next to a panel.
func UserMessage(err error) string {
	var dse *domain.DataSourceError
	if errors.As(err, &dse) {
		return "Data unavailable: " + dse.Err.Error()
	}
	return "Query error: " + err.Error()
}
