package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"mailbridge/internal/platform/config"
)

// APIError is any non-success response from the Instantly API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("instantly: API error (%d): %s", e.StatusCode, e.Message)
	}
	return "instantly: " + e.Message
}

// AuthenticationError (401) is terminal and never retried.
type AuthenticationError struct {
	APIError
}

// RateLimitError (429) is retried with exponential backoff before being
// surfaced to the caller.
type RateLimitError struct {
	APIError
}

const maxRateLimitRetries = 2 // 3 attempts total

// Client is a typed wrapper over the Instantly.ai REST API v2.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	// Retry pacing, overridable in tests.
	retryInitial time.Duration
	retryMax     time.Duration
}

func NewClient(cfg config.InstantlyConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		http:         &http.Client{Timeout: timeout},
		retryInitial: 2 * time.Second,
		retryMax:     10 * time.Second,
	}
}

// doRequest performs a single attempt and classifies the response.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, body interface{}) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mailbridge/1.0")

	log.Debug().Str("method", method).Str("url", u).Msg("instantly API request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("read response: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthenticationError{APIError{StatusCode: 401, Message: "invalid API key or expired token"}}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{APIError{StatusCode: 429, Message: "rate limit exceeded"}}
	case resp.StatusCode >= 400:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: providerMessage(data)}
	}

	return data, nil
}

// request retries rate-limited attempts with exponential backoff; every
// other failure is terminal.
func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, body interface{}) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxInterval = c.retryMax

	var data []byte
	op := func() error {
		var err error
		data, err = c.doRequest(ctx, method, endpoint, params, body)
		if err == nil {
			return nil
		}
		if _, ok := err.(*RateLimitError); ok {
			log.Warn().Str("endpoint", endpoint).Msg("instantly rate limited, backing off")
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxRateLimitRetries), ctx))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// providerMessage pulls a human-readable message out of an error body.
func providerMessage(data []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return "unknown error"
}

// decodeList tolerates the two list shapes the provider returns: a bare
// array, or an object with a named collection key.
func decodeList[T any](data []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", key, err)
		}
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", key, err)
	}
	raw, ok := wrapper[key]
	if !ok {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", key, err)
	}
	return items, nil
}

func (c *Client) GetCurrentWorkspace(ctx context.Context) (*Workspace, error) {
	data, err := c.request(ctx, http.MethodGet, "/workspaces/current", nil, nil)
	if err != nil {
		return nil, err
	}
	var ws Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}
	return &ws, nil
}

type ListCampaignsOptions struct {
	Status   string
	Tags     []string
	Page     int
	PageSize int
}

func (c *Client) ListCampaigns(ctx context.Context, opts ListCampaignsOptions) ([]Campaign, error) {
	params := url.Values{}
	if opts.Page == 0 {
		opts.Page = 1
	}
	if opts.PageSize == 0 {
		opts.PageSize = 100
	}
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("page_size", strconv.Itoa(opts.PageSize))
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if len(opts.Tags) > 0 {
		params.Set("tags", strings.Join(opts.Tags, ","))
	}

	data, err := c.request(ctx, http.MethodGet, "/campaigns", params, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Campaign](data, "campaigns")
}

func (c *Client) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	data, err := c.request(ctx, http.MethodGet, "/campaigns/"+campaignID, nil, nil)
	if err != nil {
		return nil, err
	}
	var campaign Campaign
	if err := json.Unmarshal(data, &campaign); err != nil {
		return nil, fmt.Errorf("decode campaign: %w", err)
	}
	return &campaign, nil
}

func (c *Client) ListEmailAccounts(ctx context.Context, status string) ([]EmailAccount, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}

	data, err := c.request(ctx, http.MethodGet, "/accounts", params, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[EmailAccount](data, "accounts")
}

func (c *Client) GetEmailAccount(ctx context.Context, accountID string) (*EmailAccount, error) {
	data, err := c.request(ctx, http.MethodGet, "/accounts/"+accountID, nil, nil)
	if err != nil {
		return nil, err
	}
	var account EmailAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &account, nil
}

type ListLeadsOptions struct {
	CampaignID string
	Status     string
	Page       int
	PageSize   int
}

func (c *Client) ListLeads(ctx context.Context, opts ListLeadsOptions) ([]Lead, error) {
	params := url.Values{}
	if opts.Page == 0 {
		opts.Page = 1
	}
	if opts.PageSize == 0 {
		opts.PageSize = 100
	}
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("page_size", strconv.Itoa(opts.PageSize))
	if opts.CampaignID != "" {
		params.Set("campaign_id", opts.CampaignID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}

	data, err := c.request(ctx, http.MethodGet, "/leads", params, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Lead](data, "leads")
}

func (c *Client) GetLead(ctx context.Context, leadID string) (*Lead, error) {
	data, err := c.request(ctx, http.MethodGet, "/leads/"+leadID, nil, nil)
	if err != nil {
		return nil, err
	}
	var lead Lead
	if err := json.Unmarshal(data, &lead); err != nil {
		return nil, fmt.Errorf("decode lead: %w", err)
	}
	return &lead, nil
}

// GetAccountCampaigns returns the campaigns using a given sending account.
func (c *Client) GetAccountCampaigns(ctx context.Context, accountID string) ([]Campaign, error) {
	params := url.Values{}
	params.Set("account_id", accountID)

	data, err := c.request(ctx, http.MethodGet, "/account-campaign-mapping", params, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Campaign](data, "campaigns")
}

// TestConnection verifies the API key by fetching the current workspace.
func (c *Client) TestConnection(ctx context.Context) bool {
	if _, err := c.GetCurrentWorkspace(ctx); err != nil {
		log.Error().Err(err).Msg("instantly connection test failed")
		return false
	}
	return true
}
