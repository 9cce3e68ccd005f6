package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"inbox-triage-agent/internal/infra/sched"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	logger := zerolog.Nop()
	return NewServer(0, apiKey, &sched.RunMetrics{}, &logger)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "admin-key")
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestStatusAuth(t *testing.T) {
	cases := []struct {
		name   string
		apiKey string
		header string
		want   int
	}{
		{"missing header", "admin-key", "", http.StatusUnauthorized},
		{"malformed header", "admin-key", "admin-key", http.StatusUnauthorized},
		{"wrong key", "admin-key", "Bearer nope", http.StatusForbidden},
		{"unconfigured key", "", "Bearer anything", http.StatusForbidden},
		{"valid", "admin-key", "Bearer admin-key", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.apiKey)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			s.srv.Handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestStatusBody(t *testing.T) {
	s := newTestServer(t, "admin-key")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Authorization", "Bearer admin-key")
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	var snap sched.MetricsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if snap.Processed != 0 || snap.Failed != 0 {
		t.Errorf("fresh metrics should be zero: %+v", snap)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", rec.Code)
	}
}
