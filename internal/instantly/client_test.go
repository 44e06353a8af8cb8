package instantly

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mailbridge/internal/platform/config"
)

func testClient(baseURL string) *Client {
	c := NewClient(config.InstantlyConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	c.retryInitial = time.Millisecond
	c.retryMax = 5 * time.Millisecond
	return c
}

func TestClientSendsBearerAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"ws_1","name":"Acme"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	ws, err := client.GetCurrentWorkspace(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentWorkspace returned error: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if ws.ID != "ws_1" || ws.Name != "Acme" {
		t.Errorf("unexpected workspace: %+v", ws)
	}
}

func TestClientAuthenticationErrorNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.ListCampaigns(context.Background(), ListCampaignsOptions{})
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for auth failure, got %d", attempts)
	}
}

func TestClientRetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"campaigns":[{"id":"c_1","name":"Spring","status":"active"}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	campaigns, err := client.ListCampaigns(context.Background(), ListCampaignsOptions{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(campaigns) != 1 || campaigns[0].ID != "c_1" {
		t.Errorf("unexpected campaigns: %+v", campaigns)
	}
}

func TestClientRateLimitExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.ListEmailAccounts(context.Background(), "")
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError after exhausted retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestClientListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare array", `[{"id":"a_1","email":"out@acme.io","status":"active"}]`},
		{"keyed object", `{"accounts":[{"id":"a_1","email":"out@acme.io","status":"active"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := testClient(server.URL)
			accounts, err := client.ListEmailAccounts(context.Background(), "active")
			if err != nil {
				t.Fatalf("ListEmailAccounts returned error: %v", err)
			}
			if len(accounts) != 1 || accounts[0].Email != "out@acme.io" {
				t.Errorf("unexpected accounts: %+v", accounts)
			}
		})
	}
}

func TestClientSurfacesProviderMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"campaign does not exist"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.GetCampaign(context.Background(), "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "campaign does not exist" {
		t.Errorf("expected provider message preserved, got %q", apiErr.Message)
	}
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ws_1","name":"Acme"}`))
	}))
	defer server.Close()

	if !testClient(server.URL).TestConnection(context.Background()) {
		t.Error("expected TestConnection to succeed")
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	if testClient(bad.URL).TestConnection(context.Background()) {
		t.Error("expected TestConnection to fail on auth error")
	}
}
