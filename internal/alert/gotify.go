package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Gotify struct {
	serverURL string
	token     string
	client    *http.Client
}

func NewGotify(serverURL, token string, timeout time.Duration) *Gotify {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gotify{
		serverURL: strings.TrimRight(serverURL, "/"),
		token:     token,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type gotifyMessage struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

func (g *Gotify) Send(title, body string, priority int) error {
	payload, err := json.Marshal(gotifyMessage{Title: title, Message: body, Priority: priority})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/message?token=%s", g.serverURL, url.QueryEscape(g.token))
	resp, err := g.client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to reach gotify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gotify returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
