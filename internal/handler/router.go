package handler

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter wires the dashboard API. metrics may be nil, in which case no
// /metrics route is registered and requests are not instrumented.
func NewRouter(dash *DashboardHandler, health *HealthHandler, obs RequestObserver, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	if obs != nil {
		r.Use(Instrument(obs))
	}

	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)

	// Registered on the root router so its 404/405 handlers apply to every route.
	r.HandleFunc("/v1/machines", dash.Machines).Methods(http.MethodGet)
	r.HandleFunc("/v1/temperature-range", dash.TemperatureRange).Methods(http.MethodGet)
	r.HandleFunc("/v1/summary", dash.Summary).Methods(http.MethodGet)
	r.HandleFunc("/v1/trends", dash.Trends).Methods(http.MethodGet)
	r.HandleFunc("/v1/scatter", dash.Scatter).Methods(http.MethodGet)
	r.HandleFunc("/v1/anomalies", dash.Anomalies).Methods(http.MethodGet)
	r.HandleFunc("/v1/dashboard", dash.Dashboard).Methods(http.MethodGet)

	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}

// Wrap applies CORS and the request middleware chain to h.
func Wrap(h http.Handler, origins []string) http.Handler {
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
	)(h)
	h = RequestID(h)
	h = Logging(h)
	h = Recovery(h)
	return h
}
