// Package plaid talks to the Plaid API: incremental transaction sync,
// accounts, items, sandbox tokens and webhook verification.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/baely/walletsync/internal/common/errors"
)

var hosts = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// Host returns the API base URL for a PLAID_ENV value, defaulting to sandbox.
func Host(env string) string {
	if host, ok := hosts[strings.ToLower(strings.TrimSpace(env))]; ok {
		return host
	}
	return hosts["sandbox"]
}

// Config contains configuration for the Client
type Config struct {
	ClientID string
	Secret   string
	BaseURL  string
	Timeout  time.Duration
}

// DefaultConfig reads the client configuration from the environment
func DefaultConfig() *Config {
	return &Config{
		ClientID: os.Getenv("PLAID_CLIENT_ID"),
		Secret:   os.Getenv("PLAID_SECRET"),
		BaseURL:  Host(os.Getenv("PLAID_ENV")),
		Timeout:  30 * time.Second,
	}
}

// Client handles API interactions with Plaid
type Client struct {
	clientID string
	secret   string
	baseURL  string
	client   *http.Client
}

// NewClient creates a new client with the default configuration
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client for the Plaid API
func NewClientWithConfig(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = Host("")
	}
	return &Client{
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// request posts payload to endpoint and decodes the answer into ret
func (c *Client) request(ctx context.Context, endpoint string, payload interface{}, ret interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	uri := c.baseURL + "/" + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("PLAID-CLIENT-ID", c.clientID)
	req.Header.Add("PLAID-SECRET", c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}

	if ret != nil {
		if err := json.NewDecoder(resp.Body).Decode(ret); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
	}

	return nil
}

// TransactionsSync fetches one page of incremental transaction updates
func (c *Client) TransactionsSync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.request(ctx, "transactions/sync", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AccountsGet lists the accounts of the item behind accessToken
func (c *Client) AccountsGet(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	var resp AccountsResponse
	payload := map[string]string{"access_token": accessToken}
	if err := c.request(ctx, "accounts/get", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ItemGet returns the item behind accessToken
func (c *Client) ItemGet(ctx context.Context, accessToken string) (*ItemResponse, error) {
	var resp ItemResponse
	payload := map[string]string{"access_token": accessToken}
	if err := c.request(ctx, "item/get", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SandboxPublicTokenCreate creates a sandbox public token without Link
func (c *Client) SandboxPublicTokenCreate(ctx context.Context, institutionID string, products []string) (string, error) {
	var resp struct {
		PublicToken string `json:"public_token"`
	}
	payload := map[string]interface{}{
		"institution_id":   institutionID,
		"initial_products": products,
	}
	if err := c.request(ctx, "sandbox/public_token/create", payload, &resp); err != nil {
		return "", err
	}
	return resp.PublicToken, nil
}

// ItemPublicTokenExchange swaps a public token for an access token
func (c *Client) ItemPublicTokenExchange(ctx context.Context, publicToken string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	payload := map[string]string{"public_token": publicToken}
	if err := c.request(ctx, "item/public_token/exchange", payload, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// SandboxAccessToken creates and exchanges a sandbox public token for the
// given institution (First Platypus Bank when empty).
func (c *Client) SandboxAccessToken(ctx context.Context, institutionID string) (string, error) {
	if institutionID == "" {
		institutionID = DefaultSandboxInstitution
	}
	publicToken, err := c.SandboxPublicTokenCreate(ctx, institutionID, []string{"transactions"})
	if err != nil {
		return "", errors.Wrap(err, "sandbox public token")
	}
	accessToken, err := c.ItemPublicTokenExchange(ctx, publicToken)
	if err != nil {
		return "", errors.Wrap(err, "public token exchange")
	}
	return accessToken, nil
}

// WebhookVerificationKeyGet fetches the JWK used to sign webhooks
func (c *Client) WebhookVerificationKeyGet(ctx context.Context, keyID string) (*JWK, error) {
	var resp struct {
		Key JWK `json:"key"`
	}
	payload := map[string]string{"key_id": keyID}
	if err := c.request(ctx, "webhook_verification_key/get", payload, &resp); err != nil {
		return nil, err
	}
	return &resp.Key, nil
}

// DefaultSandboxInstitution is First Platypus Bank.
const DefaultSandboxInstitution = "ins_109508"
