// Package brevo provides a client for the Brevo (Sendinblue) transactional
// email API.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.brevo.com/v3"
	defaultTimeout = 30 * time.Second
)

// Client is a Brevo API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	config     Config
}

// Config holds the configuration for the Brevo client.
type Config struct {
	APIKey         string
	DefaultSender  EmailAddress
	TimeoutSeconds int
	BaseURL        string // Optional, defaults to the Brevo API
}

// NewClient creates a new Brevo client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("brevo: API key is required")
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
		apiKey:     cfg.APIKey,
		config:     cfg,
	}, nil
}

// SendTransactionalEmail sends a transactional email and returns the
// provider message ID.
func (c *Client) SendTransactionalEmail(ctx context.Context, email *TransactionalEmail) (string, error) {
	if email == nil {
		return "", fmt.Errorf("brevo: email is required")
	}
	if len(email.To) == 0 {
		return "", fmt.Errorf("brevo: at least one recipient is required")
	}

	sender := email.Sender
	if sender == nil {
		sender = &c.config.DefaultSender
	}

	payload := sendEmailRequest{
		Sender:      sender,
		To:          email.To,
		Subject:     email.Subject,
		HTMLContent: email.HTMLContent,
		TextContent: email.TextContent,
		Tags:        email.Tags,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("brevo: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("brevo: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("brevo: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("brevo: API error %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("brevo: API error %d", resp.StatusCode)
	}

	var result sendEmailResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("brevo: decode response: %w", err)
	}

	return result.MessageID, nil
}
