package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoSendsHeadersAndJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token abc" {
			t.Errorf("Expected default header, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Trace") != "1" {
			t.Errorf("Expected request header, got %q", r.Header.Get("X-Trace"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["message"]})
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeader("Authorization", "token abc"), WithTimeout(5*time.Second))
	resp, err := c.PUT(context.Background(), "/repos/x", map[string]string{"message": "hi"}, map[string]string{"X-Trace": "1"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var out map[string]string
	if err := resp.ParseJSON(&out); err != nil {
		t.Fatal(err)
	}
	if out["echo"] != "hi" {
		t.Errorf("Expected echo 'hi', got %q", out["echo"])
	}
}

func TestDoReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).GET(context.Background(), "/missing")
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("Expected 404 HTTPError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "HTTP 404: ") {
		t.Errorf("Unexpected error text %q", err.Error())
	}
}

func TestDoWithRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}
	resp, err := c.DoWithRetry(NewRequest(http.MethodGet, "/"), cfg)
	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if resp.StatusCode != http.StatusOK || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected 3 calls ending in 200, got %d calls", calls)
	}
}

func TestDoWithRetryStopsOnNonRetryable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := &RetryConfig{
		MaxAttempts: 5,
		InitialWait: time.Millisecond,
		RetryIf:     func(err error) bool { return !IsStatus(err, http.StatusUnauthorized) },
	}
	_, err := NewClient(WithBaseURL(srv.URL)).DoWithRetry(NewRequest(http.MethodGet, "/"), cfg)
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("Expected 401 error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}
