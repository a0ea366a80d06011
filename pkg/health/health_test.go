package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestRunFoldsStatus(t *testing.T) {
	tests := []struct {
		name     string
		critical Probe
		optional Probe
		want     Status
	}{
		{"all up", up, up, StatusUp},
		{"optional down", up, down, StatusDegraded},
		{"critical down", down, up, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.Register("catalog", tt.critical)
			c.RegisterOptional("redis", tt.optional)
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Fatalf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != 2 {
				t.Fatalf("expected 2 components, got %d", len(report.Components))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("catalog", up)
	c.RegisterOptional("redis", down)

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded service should stay ready, got %d", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Components["redis"].Message != "connection refused" {
		t.Errorf("unexpected redis component %+v", report.Components["redis"])
	}

	c.Register("catalog", down)
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when catalog is down, got %d", rec.Code)
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
