package plaid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/baely/walletsync/internal/common/errors"
)

func TestHost(t *testing.T) {
	tests := map[string]string{
		"":            "https://sandbox.plaid.com",
		"Sandbox":     "https://sandbox.plaid.com",
		"development": "https://development.plaid.com",
		"production":  "https://production.plaid.com",
		"staging":     "https://sandbox.plaid.com",
	}
	for env, want := range tests {
		if got := Host(env); got != want {
			t.Errorf("Host(%q) = %q, want %q", env, got, want)
		}
	}
}

func TestClient_TransactionsSyncOmitsFirstCursor(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/sync" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("PLAID-CLIENT-ID") != "client" || r.Header.Get("PLAID-SECRET") != "secret" {
			t.Errorf("missing credentials headers")
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		bodies = append(bodies, body)
		n := len(bodies)
		mu.Unlock()

		if n == 1 {
			io.WriteString(w, `{"added":[{"transaction_id":"t1","account_id":"a1","amount":12.345,"date":"2024-01-02","name":"Coffee","payment_channel":"in store","category":["Food and Drink"]}],"modified":[],"removed":[],"next_cursor":"c1","has_more":true,"request_id":"r1"}`)
			return
		}
		io.WriteString(w, `{"added":[],"modified":[],"removed":[],"next_cursor":"c2","has_more":false,"request_id":"r2"}`)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&Config{ClientID: "client", Secret: "secret", BaseURL: srv.URL})
	result, err := NewPuller(client, 0).PullAll(context.Background(), "access-token")
	if err != nil {
		t.Fatalf("PullAll: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("requests = %d, want 2", len(bodies))
	}
	if _, ok := bodies[0]["cursor"]; ok {
		t.Errorf("first request must not carry a cursor key: %v", bodies[0])
	}
	if bodies[1]["cursor"] != "c1" {
		t.Errorf("second request cursor = %v, want c1", bodies[1]["cursor"])
	}
	if bodies[0]["access_token"] != "access-token" {
		t.Errorf("access token not sent: %v", bodies[0])
	}

	if len(result.Added) != 1 || result.Added[0].Amount.String() != "12.345" {
		t.Errorf("amount text not preserved: %+v", result.Added)
	}
	if result.Added[0].PaymentChannel != "in store" {
		t.Errorf("payment channel = %q", result.Added[0].PaymentChannel)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error_type":"INVALID_INPUT","error_code":"INVALID_ACCESS_TOKEN","error_message":"bad token","request_id":"req-9"}`)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&Config{BaseURL: srv.URL})
	_, err := NewPuller(client, 0).PullAccounts(context.Background(), "bad")

	var pe *errors.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Op != "accounts/get" || pe.StatusCode != http.StatusBadRequest || pe.Code != "INVALID_ACCESS_TOKEN" {
		t.Errorf("unexpected provider error: %+v", pe)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RequestID != "req-9" {
		t.Errorf("expected APIError in chain, got %v", err)
	}
}

func TestClient_SandboxAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch r.URL.Path {
		case "/sandbox/public_token/create":
			if body["institution_id"] != DefaultSandboxInstitution {
				t.Errorf("institution = %v", body["institution_id"])
			}
			io.WriteString(w, `{"public_token":"public-sandbox-1"}`)
		case "/item/public_token/exchange":
			if body["public_token"] != "public-sandbox-1" {
				t.Errorf("public token = %v", body["public_token"])
			}
			io.WriteString(w, `{"access_token":"access-sandbox-1","item_id":"item-1"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClientWithConfig(&Config{BaseURL: srv.URL})
	token, err := client.SandboxAccessToken(context.Background(), "")
	if err != nil {
		t.Fatalf("SandboxAccessToken: %v", err)
	}
	if token != "access-sandbox-1" {
		t.Errorf("token = %q", token)
	}
}
