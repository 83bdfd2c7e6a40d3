package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.eu.port.io/", 0)

	if client.BaseURL() != "https://api.eu.port.io" {
		t.Errorf("Expected baseURL without trailing slash, got '%s'", client.BaseURL())
	}
	if client.httpClient.Timeout == 0 {
		t.Error("Expected a default request timeout")
	}
}

func TestNewClient_DefaultURL(t *testing.T) {
	client := NewClient("", 0)

	if client.BaseURL() != "https://api.port.io" {
		t.Errorf("Expected default baseURL 'https://api.port.io', got '%s'", client.BaseURL())
	}
}

func TestClient_RequestAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/access_token" {
			t.Errorf("Expected path '/v1/auth/access_token', got '%s'", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected method 'POST', got '%s'", r.Method)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("Token exchange must not send a bearer, got '%s'", r.Header.Get("Authorization"))
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if payload["clientId"] != "test-id" || payload["clientSecret"] != "test-secret" {
			t.Errorf("Unexpected payload: %v", payload)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-access-token",
			ExpiresIn:   3600,
			TokenType:   "Bearer",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	resp, err := client.RequestAccessToken(context.Background(), "test-id", "test-secret")
	if err != nil {
		t.Fatalf("Failed to request token: %v", err)
	}
	if resp.AccessToken != "test-access-token" {
		t.Errorf("Expected token 'test-access-token', got '%s'", resp.AccessToken)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("Expected expiresIn 3600, got %d", resp.ExpiresIn)
	}
}

func TestClient_RequestAccessToken_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_credentials"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	_, err := client.RequestAccessToken(context.Background(), "bad-id", "bad-secret")
	var authErr *AuthExchangeError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected *AuthExchangeError, got %T: %v", err, err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", authErr.StatusCode)
	}
	if string(authErr.Body) != `{"error":"invalid_credentials"}` {
		t.Errorf("Expected body to be preserved, got '%s'", authErr.Body)
	}
}

func TestClient_Probe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/blueprints" {
			t.Errorf("Expected probe path '/v1/blueprints', got '%s'", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "Bearer good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	status, err := client.Probe(context.Background(), "good")
	if err != nil || status != http.StatusOK {
		t.Errorf("Expected 200 for good token, got %d (%v)", status, err)
	}

	status, err = client.Probe(context.Background(), "bad")
	if err != nil || status != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad token, got %d (%v)", status, err)
	}
}

func TestClient_Probe_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, 0)
	if _, err := client.Probe(context.Background(), "tok"); err == nil {
		t.Error("Expected error when the server is unreachable")
	}
}

func TestClient_do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Expected Authorization header 'Bearer test-token', got '%s'", r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	resp, err := client.do(context.Background(), "test", http.MethodGet, "/test", "test-token", nil)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestClient_do_Retry(t *testing.T) {
	attempts := 0
	// Returns 429 on the first attempt
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	resp, err := client.do(context.Background(), "test", http.MethodGet, "/test", "test-token", nil)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if attempts != 2 {
		t.Errorf("Expected 2 attempts (retry on 429), got %d", attempts)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 after retry, got %d", resp.StatusCode)
	}
}

func TestClient_do_UpstreamError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not_found","message":"Blueprint missing"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)

	_, err := client.do(context.Background(), "test", http.MethodGet, "/v1/blueprints/x/entities", "tok", nil)
	var upstreamErr *UpstreamRequestError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected *UpstreamRequestError, got %T: %v", err, err)
	}
	if upstreamErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", upstreamErr.StatusCode)
	}
	if upstreamErr.IsAuthFailure() {
		t.Error("404 must not count as an auth failure")
	}
	if attempts != 1 {
		t.Errorf("Expected no retry for 404, got %d attempts", attempts)
	}
}
