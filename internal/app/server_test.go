package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vkozyrev/photocaption/internal/handler"
)

func TestCORSPreflightRequest(t *testing.T) {
	// Create a minimal server setup for testing
	photoHandler := &handler.PhotoHandler{}
	server := NewServer(photoHandler)

	// Create a test OPTIONS preflight request
	req := httptest.NewRequest("OPTIONS", "/upload", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	rr := httptest.NewRecorder()

	// Same middleware chain the Run method builds
	corsHandler := corsMiddleware()(server.router)
	corsHandler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %v, want *", got)
	}

	allowHeaders := rr.Header().Get("Access-Control-Allow-Headers")
	if allowHeaders == "" {
		t.Error("Access-Control-Allow-Headers should not be empty for OPTIONS request")
	}
}

func TestCORSWithActualRequest(t *testing.T) {
	photoHandler := &handler.PhotoHandler{}
	server := NewServer(photoHandler)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Origin", "http://example.com")

	rr := httptest.NewRecorder()

	corsHandler := corsMiddleware()(server.router)
	corsHandler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %v, want *", got)
	}
}
