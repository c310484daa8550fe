package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

func roundedTo(v float64, places int) bool {
	scale := math.Pow(10, float64(places))
	return math.Abs(v*scale-math.Round(v*scale)) < 1e-6
}

// --- Generator ---

func TestGenerator_Deterministic(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := NewGenerator(DefaultProfiles(), DefaultAnomalyRate, 42)
	b := NewGenerator(DefaultProfiles(), DefaultAnomalyRate, 42)

	for i := 0; i < 50; i++ {
		ra := a.GenerateAt("MACHINE_003", ts)
		rb := b.GenerateAt("MACHINE_003", ts)
		if ra != rb {
			t.Fatalf("reading %d differs: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestGenerator_Rounding(t *testing.T) {
	g := NewGenerator(DefaultProfiles(), 0.5, 7)
	for i := 0; i < 200; i++ {
		r := g.Generate("MACHINE_001")
		if !roundedTo(r.Temperature, 2) {
			t.Fatalf("temperature %v not rounded to 2 places", r.Temperature)
		}
		if !roundedTo(r.Vibration, 3) {
			t.Fatalf("vibration %v not rounded to 3 places", r.Vibration)
		}
		if !roundedTo(r.RPM, 0) {
			t.Fatalf("rpm %v not rounded to a whole number", r.RPM)
		}
	}
}

func TestGenerator_NoAnomalies(t *testing.T) {
	g := NewGenerator(DefaultProfiles(), 0, 1)
	var sum float64
	const n = 2000
	for i := 0; i < n; i++ {
		r := g.Generate("MACHINE_002")
		if r.Status != domain.StatusNormal {
			t.Fatalf("expected normal status with zero anomaly rate, got %s", r.Status)
		}
		sum += r.Temperature
	}
	// MACHINE_002 runs at 65°C with σ=2; the sample mean of 2000 draws sits well within 0.5
	if mean := sum / n; math.Abs(mean-65) > 0.5 {
		t.Errorf("mean temperature %v too far from profile", mean)
	}
}

func TestGenerator_AllAnomalies(t *testing.T) {
	g := NewGenerator(DefaultProfiles(), 1, 3)
	var sum float64
	const n = 2000
	for i := 0; i < n; i++ {
		r := g.Generate("MACHINE_001")
		if r.Status != domain.StatusWarning {
			t.Fatalf("expected warning status with anomaly rate 1, got %s", r.Status)
		}
		sum += r.Temperature
	}
	// fault adds N(15,5) on top of the 70°C profile
	if mean := sum / n; math.Abs(mean-85) > 1 {
		t.Errorf("mean faulty temperature %v too far from 85", mean)
	}
}

func TestGenerator_UnknownMachineFallsBack(t *testing.T) {
	g := NewGenerator(DefaultProfiles(), 0, 1)
	if r := g.Generate("MACHINE_999"); r.MachineID != "MACHINE_001" {
		t.Errorf("expected fallback to MACHINE_001, got %s", r.MachineID)
	}
}

func TestGenerator_BatchCoversMachines(t *testing.T) {
	g := NewGenerator(nil, 0, 11)
	batch := g.Batch(500)
	if len(batch) != 500 {
		t.Fatalf("expected 500 readings, got %d", len(batch))
	}
	seen := map[string]bool{}
	for _, r := range batch {
		if !g.Known(r.MachineID) {
			t.Fatalf("unknown machine %s", r.MachineID)
		}
		seen[r.MachineID] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected all 5 machines in a batch of 500, saw %d", len(seen))
	}
}

// --- Profiles ---

func TestParseProfiles(t *testing.T) {
	doc := []byte(`
machines:
  - machine_id: PRESS_01
    temperature: 80
    vibration: 0.7
    rpm: 600
  - machine_id: LATHE_02
    temperature: 60
    vibration: 0.3
    rpm: 2400
`)
	profiles, err := ParseProfiles(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 || profiles[1].MachineID != "LATHE_02" || profiles[1].RPM != 2400 {
		t.Errorf("unexpected profiles: %+v", profiles)
	}
}

func TestParseProfiles_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":      "machines: []",
		"missing id": "machines:\n  - temperature: 70\n",
		"duplicate":  "machines:\n  - machine_id: A\n  - machine_id: A\n",
		"not yaml":   "machines: [unterminated",
	}
	for name, doc := range cases {
		if _, err := ParseProfiles([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadProfiles(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil || len(profiles) != 5 {
		t.Fatalf("expected default profiles, got %d (%v)", len(profiles), err)
	}

	path := filepath.Join(t.TempDir(), "profiles.yaml")
	os.WriteFile(path, []byte("machines:\n  - machine_id: ONLY\n    temperature: 50\n"), 0o600)
	profiles, err = LoadProfiles(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].MachineID != "ONLY" {
		t.Errorf("unexpected profiles: %+v", profiles)
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// --- Server ---

func newTestServer(t *testing.T, rate float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(NewGenerator(DefaultProfiles(), rate, 5)).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, 0)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" || body["service"] != "edge-gateway-simulator" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestServer_Data(t *testing.T) {
	srv := newTestServer(t, 0)

	for query, want := range map[string]string{
		"?machine_id=MACHINE_004": "MACHINE_004",
		"?machine_id=NOPE":        "MACHINE_001",
		"":                        "MACHINE_001",
	} {
		resp, err := http.Get(srv.URL + "/data" + query)
		if err != nil {
			t.Fatal(err)
		}
		var p Payload
		json.NewDecoder(resp.Body).Decode(&p)
		resp.Body.Close()
		if p.MachineID != want {
			t.Errorf("query %q: expected %s, got %s", query, want, p.MachineID)
		}
		if p.Status != domain.StatusNormal {
			t.Errorf("query %q: expected normal status, got %s", query, p.Status)
		}
	}
}

func TestServer_Batch(t *testing.T) {
	srv := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/batch")
	if err != nil {
		t.Fatal(err)
	}
	var payloads []Payload
	json.NewDecoder(resp.Body).Decode(&payloads)
	resp.Body.Close()
	if len(payloads) != defaultBatchSize {
		t.Errorf("expected default batch of %d, got %d", defaultBatchSize, len(payloads))
	}

	resp, _ = http.Get(srv.URL + "/batch?size=abc")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad size, got %d", resp.StatusCode)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, 0)
	resp, err := http.Post(srv.URL+"/batch", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

// --- Client and Source ---

func TestClient_RoundTrip(t *testing.T) {
	srv := newTestServer(t, 0)
	c := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	rd, err := c.Reading(ctx, "MACHINE_005")
	if err != nil {
		t.Fatalf("Reading: %v", err)
	}
	if rd.MachineID != "MACHINE_005" || rd.Timestamp.IsZero() {
		t.Errorf("unexpected reading: %+v", rd)
	}

	batch, err := c.Batch(ctx, 25)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(batch) != 25 {
		t.Errorf("expected 25 readings, got %d", len(batch))
	}
}

func TestClient_UnreachableIsDataSourceError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Batch(context.Background(), 5)
	var dse *domain.DataSourceError
	if !errors.As(err, &dse) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}
	if dse.Op != "batch" {
		t.Errorf("expected op batch, got %s", dse.Op)
	}
}

func TestClient_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"machine_id":"MACHINE_001","timestamp":"2025-03-01T00:00:00Z","readings":{"temperature":70},"status":"on fire"}]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Batch(context.Background(), 1)
	if !errors.Is(err, domain.ErrMalformedReading) {
		t.Errorf("expected ErrMalformedReading, got %v", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Ping(context.Background())
	var dse *domain.DataSourceError
	if !errors.As(err, &dse) {
		t.Errorf("expected DataSourceError, got %v", err)
	}
}

func TestSource_AnswersFromSnapshot(t *testing.T) {
	srv := newTestServer(t, 0)
	src := NewSource(NewClient(srv.URL, nil), 300)
	ctx := context.Background()

	ids, err := src.MachineIDs(ctx)
	if err != nil {
		t.Fatalf("MachineIDs: %v", err)
	}
	if len(ids) == 0 {
		t.Fatal("expected machine IDs from the simulator")
	}

	readings, err := src.FetchAll(ctx, []string{"MACHINE_001"})
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	for i, r := range readings {
		if r.MachineID != "MACHINE_001" {
			t.Fatalf("reading %d from %s", i, r.MachineID)
		}
	}

	s, err := src.Summary(ctx, domain.Filter{MachineIDs: ids, Range: domain.TemperatureRange{Low: 0, High: 200}})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Count == 0 || s.AvgRPM < 700 || s.AvgRPM > 1300 {
		t.Errorf("implausible summary: %+v", s)
	}
}
