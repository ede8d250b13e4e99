package arkesel

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

const DefaultBaseURL = "https://sms.arkesel.com"

var ErrNotConfigured = errors.New("arkesel api key is not configured")

type Client struct {
	APIKey     string
	SenderID   string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey, senderID string) *Client {
	return &Client{
		APIKey:   strings.TrimSpace(apiKey),
		SenderID: strings.TrimSpace(senderID),
		BaseURL:  DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.APIKey != "" && c.SenderID != ""
}

type sendRequest struct {
	Sender     string   `json:"sender"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

type sendResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Send delivers one message to every recipient (international format,
// e.g. 233241234567).
func (c *Client) Send(ctx context.Context, recipients []string, message string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if len(recipients) == 0 {
		return errors.New("arkesel: at least one recipient is required")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("arkesel: message is empty")
	}

	buf, err := json.Marshal(sendRequest{Sender: c.SenderID, Message: message, Recipients: recipients})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+"/api/v2/sms/send", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("arkesel: send: %w", err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))

	var out sendResponse
	_ = json.Unmarshal(raw, &out)
	if res.StatusCode < 200 || res.StatusCode >= 300 || !strings.EqualFold(out.Status, "success") {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", res.StatusCode)
		}
		return fmt.Errorf("arkesel: %s", msg)
	}
	return nil
}

// NormalizeGhanaNumber turns local numbers (0241234567) into the
// international form the API expects. Other inputs are returned with
// spaces and a leading + removed.
func NormalizeGhanaNumber(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") && len(p) == 10 {
		return "233" + p[1:]
	}
	return p
}
