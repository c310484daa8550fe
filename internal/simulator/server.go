package simulator

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

const (
	defaultBatchSize = 10
	// MaxBatchSize bounds a single /batch response.
	MaxBatchSize = 10000
)

// Server exposes a Generator over a read-only HTTP interface.
type Server struct {
	gen *Generator
}

// NewServer creates a new Server.
func NewServer(gen *Generator) *Server {
	return &Server{gen: gen}
}

// Router registers the simulator routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.Health).Methods(http.MethodGet)
	r.HandleFunc("/data", s.Data).Methods(http.MethodGet)
	r.HandleFunc("/batch", s.Batch).Methods(http.MethodGet)
	return r
}

// Health handles GET /
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "edge-gateway-simulator",
	})
}

// Data handles GET /data?machine_id=
func (s *Server) Data(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("machine_id")
	if !s.gen.Known(id) {
		id = s.gen.MachineIDs()[0]
	}
	writeJSON(w, http.StatusOK, NewPayload(s.gen.Generate(id)))
}

// Batch handles GET /batch?size=
func (s *Server) Batch(w http.ResponseWriter, r *http.Request) {
	size := defaultBatchSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "size must be a non-negative integer"})
			return
		}
		size = n
	}
	if size > MaxBatchSize {
		size = MaxBatchSize
	}

	readings := s.gen.Batch(size)
	out := make([]Payload, len(readings))
	for i, rd := range readings {
		out[i] = NewPayload(rd)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
