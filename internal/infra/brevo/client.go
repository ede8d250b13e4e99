package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.brevo.com/v3"

var ErrNotConfigured = errors.New("brevo api key is not configured")

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type Email struct {
	To          []Address
	Subject     string
	HTMLContent string
	TextContent string
	Tags        []string
}

type Client struct {
	APIKey     string
	BaseURL    string
	Sender     Address
	HTTPClient *http.Client
}

func NewClient(apiKey, senderEmail, senderName string) *Client {
	return &Client{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: DefaultBaseURL,
		Sender:  Address{Email: strings.TrimSpace(senderEmail), Name: senderName},
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.APIKey != "" && c.Sender.Email != ""
}

type sendRequest struct {
	Sender      Address   `json:"sender"`
	To          []Address `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent,omitempty"`
	TextContent string    `json:"textContent,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Send delivers one transactional email and returns Brevo's message id.
func (c *Client) Send(ctx context.Context, email Email) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if len(email.To) == 0 {
		return "", errors.New("brevo: at least one recipient is required")
	}

	buf, err := json.Marshal(sendRequest{
		Sender:      c.Sender,
		To:          email.To,
		Subject:     email.Subject,
		HTMLContent: email.HTMLContent,
		TextContent: email.TextContent,
		Tags:        email.Tags,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/smtp/email", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo: send: %w", err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var e errorResponse
		if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
			return "", fmt.Errorf("brevo: %s (%s)", e.Message, e.Code)
		}
		return "", fmt.Errorf("brevo: unexpected status %d", res.StatusCode)
	}

	var out struct {
		MessageID string `json:"messageId"`
	}
	_ = json.Unmarshal(raw, &out)
	return out.MessageID, nil
}
