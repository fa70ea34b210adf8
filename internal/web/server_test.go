package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/monitor"
	"github.com/kozaktomas/facewatch/internal/roster"
)

type stubSession struct {
	starts int
}

func (s *stubSession) Start(context.Context) error { s.starts++; return nil }
func (s *stubSession) Stop() error                 { return nil }
func (s *stubSession) Scan(context.Context) (monitor.ScanReport, error) {
	return monitor.ScanReport{}, nil
}
func (s *stubSession) Status() monitor.Status              { return monitor.Status{} }
func (s *stubSession) Overlay() monitor.Overlay            { return monitor.Overlay{} }
func (s *stubSession) Counters() facematch.SessionCounters { return facematch.SessionCounters{} }
func (s *stubSession) Subscribe() (<-chan monitor.Overlay, func()) {
	return make(chan monitor.Overlay), func() {}
}

func newTestServer(t *testing.T, token string) (*Server, *stubSession) {
	t.Helper()
	r, err := roster.Default()
	if err != nil {
		t.Fatalf("roster.Default() error: %v", err)
	}
	cfg := &config.Config{Web: config.WebConfig{Host: "127.0.0.1", Port: 0, OperatorToken: token}}
	session := &stubSession{}
	return NewServer(cfg, session, r, nil), session
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(t, "")

	tests := []struct {
		method   string
		path     string
		expected int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodGet, "/api/v1/camera", http.StatusOK},
		{http.MethodGet, "/api/v1/stats", http.StatusOK},
		{http.MethodGet, "/api/v1/overlay", http.StatusOK},
		{http.MethodGet, "/api/v1/roster", http.StatusOK},
		{http.MethodGet, "/api/v1/roster/2", http.StatusOK},
		{http.MethodPost, "/api/v1/camera/start", http.StatusOK},
		{http.MethodPost, "/api/v1/camera/stop", http.StatusOK},
		{http.MethodPost, "/api/v1/scan", http.StatusOK},
		{http.MethodGet, "/api/v1/scan", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.expected {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.expected, rec.Body.String())
			}
		})
	}
}

func TestRoutes_OperatorToken(t *testing.T) {
	s, session := newTestServer(t, "s3cret")

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/camera/start", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if session.starts != 0 {
		t.Error("session must not start without token")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/camera/start", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || session.starts != 1 {
		t.Errorf("expected start with token, got %d (starts %d)", rec.Code, session.starts)
	}

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("read endpoints stay open, got %d", rec.Code)
	}
}
