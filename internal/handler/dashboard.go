package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/duckworks/sensor-analytics/internal/domain"
	"github.com/duckworks/sensor-analytics/internal/service"
)

var errBadQuery = errors.New("invalid query")

// DashboardHandler serves the dashboard panels as JSON.
type DashboardHandler struct {
	svc *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Machines handles GET /v1/machines
func (h *DashboardHandler) Machines(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Machines(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"machines": ids})
}

// TemperatureRange handles GET /v1/temperature-range
func (h *DashboardHandler) TemperatureRange(w http.ResponseWriter, r *http.Request) {
	tr, err := h.svc.TemperatureBounds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// Summary handles GET /v1/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	sum, err := h.svc.Summary(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"filter": f, "summary": sum})
}

// Trends handles GET /v1/trends
func (h *DashboardHandler) Trends(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	points, err := h.svc.Trends(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"filter": f, "points": points})
}

// Scatter handles GET /v1/scatter
func (h *DashboardHandler) Scatter(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	points, err := h.svc.Scatter(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"filter": f, "points": points})
}

// Anomalies handles GET /v1/anomalies
func (h *DashboardHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := h.svc.ResolveMachines(r.Context(), q.MachineIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	ev, err := h.svc.Anomalies(r.Context(), ids, h.svc.Threshold(q.Threshold))
	if err != nil {
		writeError(w, err)
		return
	}
	for _, f := range ev.Failures {
		log.Printf("Baseline failed: %v", f)
	}
	writeJSON(w, http.StatusOK, ev)
}

// Dashboard handles GET /v1/dashboard. It always answers 200; failed panels
// are listed under "errors".
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	d := h.svc.Dashboard(r.Context(), q)
	for panel, msg := range d.Errors {
		log.Printf("Panel %s failed: %s", panel, msg)
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DashboardHandler) filter(w http.ResponseWriter, r *http.Request) (domain.Filter, bool) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return domain.Filter{}, false
	}
	f, err := h.svc.ResolveFilter(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return domain.Filter{}, false
	}
	return f, true
}

// parseQuery reads the dashboard controls: repeated machine_id, min_temp and
// max_temp (both or neither) and threshold.
func parseQuery(r *http.Request) (service.Query, error) {
	v := r.URL.Query()
	q := service.Query{MachineIDs: v["machine_id"]}

	minRaw, maxRaw := v.Get("min_temp"), v.Get("max_temp")
	if (minRaw == "") != (maxRaw == "") {
		return q, fmt.Errorf("%w: min_temp and max_temp must be given together", errBadQuery)
	}
	if minRaw != "" {
		low, err := parseFinite("min_temp", minRaw)
		if err != nil {
			return q, err
		}
		high, err := parseFinite("max_temp", maxRaw)
		if err != nil {
			return q, err
		}
		q.Range = &domain.TemperatureRange{Low: low, High: high}
	}

	if raw := v.Get("threshold"); raw != "" {
		t, err := parseFinite("threshold", raw)
		if err != nil {
			return q, err
		}
		q.Threshold = &t
	}
	return q, nil
}

func parseFinite(name, raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", errBadQuery, name, raw)
	}
	return f, nil
}

func writeError(w http.ResponseWriter, err error) {
	var dse *domain.DataSourceError
	switch {
	case errors.Is(err, errBadQuery), errors.Is(err, domain.ErrInvalidRange):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNoReadings):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &dse):
		log.Printf("Data source error: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		log.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
