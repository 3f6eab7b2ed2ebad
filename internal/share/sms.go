package share

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/snapbooth/boothd/internal/config"
)

// SMSGate talks to an SMS-Gate style android gateway. A message is
// counted as sent once the gateway accepts it; delivery states
// pending, processed, sent and delivered are all acceptance.
type SMSGate struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

func NewSMSGate(cfg config.SMSConfig) *SMSGate {
	return &SMSGate{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type smsRequest struct {
	PhoneNumbers       []string       `json:"phoneNumbers"`
	TextMessage        smsTextMessage `json:"textMessage"`
	WithDeliveryReport bool           `json:"withDeliveryReport"`
}

type smsTextMessage struct {
	Text string `json:"text"`
}

type smsResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func (g *SMSGate) SendMessage(ctx context.Context, phone, text string) error {
	payload := smsRequest{
		PhoneNumbers:       []string{phone},
		TextMessage:        smsTextMessage{Text: text},
		WithDeliveryReport: true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.username, g.password)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode sms response: %w", err)
	}

	switch strings.ToLower(parsed.State) {
	case "pending", "processed", "sent", "delivered":
		return nil
	default:
		return fmt.Errorf("sms gateway rejected message, state %q", parsed.State)
	}
}

// Health probes the gateway. Called once at startup so a dead gateway
// shows up in the log before the first guest tries to share.
func (g *SMSGate) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	req.SetBasicAuth(g.username, g.password)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway health returned status %d", resp.StatusCode)
	}
	return nil
}
