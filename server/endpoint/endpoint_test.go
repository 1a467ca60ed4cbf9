package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dagflow/component"
)

func get(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	return rr, body
}

func checker(statuses ...component.HealthStatus) HealthChecker {
	return func(context.Context) []component.Health {
		out := make([]component.Health, len(statuses))
		for i, s := range statuses {
			out[i] = component.Health{Name: "c", Status: s}
		}
		return out
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		checker  HealthChecker
		wantCode int
		want     string
	}{
		{"no checker", nil, http.StatusOK, "healthy"},
		{"all healthy", checker(component.StatusHealthy), http.StatusOK, "healthy"},
		{"degraded", checker(component.StatusHealthy, component.StatusDegraded), http.StatusOK, "degraded"},
		{"unhealthy", checker(component.StatusDegraded, component.StatusUnhealthy), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := get(t, Health("dagflow", tt.checker))
			if rr.Code != tt.wantCode || body["status"] != tt.want {
				t.Errorf("got %d %v, want %d %s", rr.Code, body["status"], tt.wantCode, tt.want)
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	if rr, _ := get(t, Readiness("dagflow", checker(component.StatusDegraded))); rr.Code != http.StatusOK {
		t.Errorf("degraded readiness = %d, want 200", rr.Code)
	}
	if rr, body := get(t, Readiness("dagflow", checker(component.StatusUnhealthy))); rr.Code != http.StatusServiceUnavailable || body["status"] != "not_ready" {
		t.Errorf("unhealthy readiness = %d %v", rr.Code, body)
	}
}

func TestVersionAndLiveness(t *testing.T) {
	if _, body := get(t, Version()); body["version"] == nil {
		t.Errorf("version body = %v", body)
	}
	if _, body := get(t, Liveness("dagflow")); body["status"] != "alive" {
		t.Errorf("liveness body = %v", body)
	}
	if _, body := get(t, Metrics()); body["goroutines"] == nil {
		t.Errorf("metrics body = %v", body)
	}
}
