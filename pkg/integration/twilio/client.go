// Package twilio provides a minimal client for the Twilio Messages API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.twilio.com/2010-04-01"
	defaultTimeout = 30 * time.Second
)

// Client is a Twilio API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
}

// Config holds the configuration for the Twilio client.
type Config struct {
	AccountSID     string
	AuthToken      string
	FromNumber     string
	TimeoutSeconds int
	BaseURL        string // Optional, defaults to the Twilio API
}

// NewClient creates a new Twilio client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio: account SID and auth token are required")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("twilio: from number is required")
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	baseURL := defaultBaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		config:     cfg,
	}, nil
}

// messageResponse is the Twilio message creation response.
type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"` // error message on failure
	Code    int    `json:"code"`    // error code on failure
}

// SendMessage sends an SMS and returns the provider message SID.
func (c *Client) SendMessage(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("twilio: recipient is required")
	}
	if body == "" {
		return "", fmt.Errorf("twilio: message body is required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.config.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("twilio: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.config.AccountSID, c.config.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("twilio: read response: %w", err)
	}

	var result messageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("twilio: decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if result.Message != "" {
			return "", fmt.Errorf("twilio: API error %d (code %d): %s", resp.StatusCode, result.Code, result.Message)
		}
		return "", fmt.Errorf("twilio: API error %d", resp.StatusCode)
	}

	return result.SID, nil
}
