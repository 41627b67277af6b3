package router

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/HatiCode/dtstail/pkg/profile"
	"github.com/HatiCode/dtstail/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot(receivedAt time.Time) storage.Snapshot {
	return storage.Snapshot{
		DeviceCode: "BPDTS001",
		SampleTime: "2024-03-01T12:00:00.000Z",
		ReceivedAt: receivedAt,
		Summary: profile.Summary{
			Channel:        1,
			Points:         2206,
			Dz:             0.5,
			ExternalLength: 1103,
			MinC:           4.2,
			MaxC:           18.9,
			MeanC:          9.5,
			DateTime:       "2024-03-01T12:00:00.000Z",
		},
	}
}

func TestSetupRoutes(t *testing.T) {
	mux := SetupRoutes(storage.NewMemoryStore(), 10*time.Minute, testLogger())

	if mux == nil {
		t.Fatal("SetupRoutes() returned nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	mux := SetupRoutes(storage.NewMemoryStore(), 10*time.Minute, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if body != "OK" {
		t.Errorf("body = %q, want %q", body, "OK")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := SetupRoutes(storage.NewMemoryStore(), 10*time.Minute, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}

	// Metrics endpoint should return prometheus text format
	contentType := w.Header().Get("Content-Type")
	if contentType == "" {
		t.Error("Content-Type header should be set for metrics endpoint")
	}
}

func TestFrameEndpoint_ReturnsLatest(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Put(testSnapshot(time.Now())); err != nil {
		t.Fatalf("failed to put snapshot: %v", err)
	}

	mux := SetupRoutes(store, 10*time.Minute, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/frame/current?device=BPDTS001", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got := w.Header().Get("X-Dtstail-Stale"); got != "" {
		t.Errorf("fresh snapshot should not carry stale header, got %q", got)
	}

	var resp struct {
		DeviceCode string          `json:"deviceCode"`
		SampleTime string          `json:"sampleTime"`
		ReceivedAt string          `json:"receivedAt"`
		Summary    profile.Summary `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.DeviceCode != "BPDTS001" {
		t.Errorf("deviceCode = %q, want BPDTS001", resp.DeviceCode)
	}
	if resp.SampleTime != "2024-03-01T12:00:00.000Z" {
		t.Errorf("sampleTime = %q, want 2024-03-01T12:00:00.000Z", resp.SampleTime)
	}
	if resp.ReceivedAt == "" {
		t.Error("receivedAt should be set")
	}
	if resp.Summary.Points != 2206 {
		t.Errorf("summary points = %d, want 2206", resp.Summary.Points)
	}
	if resp.Summary.MeanC != 9.5 {
		t.Errorf("summary meanC = %v, want 9.5", resp.Summary.MeanC)
	}
}

func TestFrameEndpoint_StaleHeader(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Put(testSnapshot(time.Now().Add(-30 * time.Minute))); err != nil {
		t.Fatalf("failed to put snapshot: %v", err)
	}

	mux := SetupRoutes(store, 10*time.Minute, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/frame/current?device=BPDTS001", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("X-Dtstail-Stale"); got != "true" {
		t.Errorf("expected X-Dtstail-Stale header, got %q", got)
	}
}

func TestFrameEndpoint_MissingDevice(t *testing.T) {
	mux := SetupRoutes(storage.NewMemoryStore(), 10*time.Minute, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/frame/current", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFrameEndpoint_NotFound(t *testing.T) {
	mux := SetupRoutes(storage.NewMemoryStore(), 10*time.Minute, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/frame/current?device=UNKNOWN", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusNotFound)
	}
}

type failingStore struct{}

func (failingStore) Put(storage.Snapshot) error { return fmt.Errorf("disk on fire") }

func (failingStore) GetLatest(string) (storage.Snapshot, bool, error) {
	return storage.Snapshot{}, false, fmt.Errorf("disk on fire")
}

func TestFrameEndpoint_StoreError(t *testing.T) {
	mux := SetupRoutes(failingStore{}, 10*time.Minute, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/frame/current?device=BPDTS001", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
