package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", false)
	logger.Info().Str("segment_id", "segment-0").Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["segment_id"] != "segment-0" {
		t.Errorf("Expected segment_id field, got %v", entry["segment_id"])
	}
	if entry["message"] != "hello" {
		t.Errorf("Expected message 'hello', got %v", entry["message"])
	}
}

func TestWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := WithCorrelationID(newLogger(&buf, "debug", false), "run-1")
	logger.Info().Msg("x")
	if !strings.Contains(buf.String(), `"correlation_id":"run-1"`) {
		t.Errorf("Expected correlation_id in %q", buf.String())
	}
}

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "healthy" || status.Service != "answer-audio" {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestReadinessHandler(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }
	bad := func(ctx context.Context) (bool, error) { return false, errors.New("missing key") }

	rec := httptest.NewRecorder()
	ReadinessHandler(map[string]HealthCheckFunc{"gemini": ok})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthCheckFunc{"gemini": ok, "recognizer": bad})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Dependencies["recognizer"].Message != "missing key" {
		t.Errorf("Expected recognizer failure message, got %+v", status.Dependencies["recognizer"])
	}
}

func TestGRPCHealth(t *testing.T) {
	var logs bytes.Buffer
	gh, err := StartGRPCHealth("127.0.0.1:0", newLogger(&logs, "debug", false))
	if err != nil {
		t.Fatalf("StartGRPCHealth failed: %v", err)
	}
	gh.SetServing(true)

	conn, err := grpc.NewClient(gh.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: "answer-audio"})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", resp.GetStatus())
	}

	gh.Stop()
	if logs.Len() != 0 {
		t.Errorf("Expected a clean stop without error logs, got %q", logs.String())
	}
}

func TestGRPCHealth_AddressInUse(t *testing.T) {
	first, err := StartGRPCHealth("127.0.0.1:0", newLogger(&bytes.Buffer{}, "info", false))
	if err != nil {
		t.Fatalf("StartGRPCHealth failed: %v", err)
	}
	defer first.Stop()

	if _, err := StartGRPCHealth(first.Addr(), newLogger(&bytes.Buffer{}, "info", false)); err == nil {
		t.Fatal("Expected an error when the address is already bound")
	}
}
