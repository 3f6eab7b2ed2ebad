package share

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/snapbooth/boothd/internal/config"
)

// ZeroXZero uploads to a 0x0.st-style pastebin. The service rejects
// requests with a default library User-Agent, so the agent string is
// configurable and always sent.
type ZeroXZero struct {
	endpoint     string
	userAgent    string
	expiresHours int
	client       *http.Client
}

func NewZeroXZero(cfg config.ZeroXZeroConfig) *ZeroXZero {
	return &ZeroXZero{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		userAgent:    cfg.UserAgent,
		expiresHours: cfg.ExpiresHours,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
}

func (z *ZeroXZero) Name() string { return "0x0.st" }

func (z *ZeroXZero) Expiry() string {
	return formatExpiry(z.expiresHours * 3600)
}

func (z *ZeroXZero) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if z.expiresHours > 0 {
		if err := writer.WriteField("expires", strconv.Itoa(z.expiresHours)); err != nil {
			return "", fmt.Errorf("failed to build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", z.userAgent)

	resp, err := z.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	link := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(link, "http") {
		return "", fmt.Errorf("upload returned unexpected body: %q", link)
	}
	return link, nil
}

// ImgBB uploads base64-encoded images to the imgbb API.
type ImgBB struct {
	endpoint          string
	apiKey            string
	expirationSeconds int
	client            *http.Client
}

func NewImgBB(cfg config.ImgBBConfig) *ImgBB {
	return &ImgBB{
		endpoint:          cfg.Endpoint,
		apiKey:            cfg.APIKey,
		expirationSeconds: cfg.ExpirationSeconds,
		client:            &http.Client{Timeout: cfg.Timeout},
	}
}

func (i *ImgBB) Name() string { return "imgbb" }

func (i *ImgBB) Expiry() string {
	return formatExpiry(i.expirationSeconds)
}

type imgbbResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

func (i *ImgBB) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	endpoint := fmt.Sprintf("%s?key=%s", i.endpoint, url.QueryEscape(i.apiKey))
	if i.expirationSeconds > 0 {
		endpoint += fmt.Sprintf("&expiration=%d", i.expirationSeconds)
	}

	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(data))
	form.Set("name", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if !parsed.Success || parsed.Data.URL == "" {
		return "", fmt.Errorf("upload not accepted by imgbb")
	}
	return parsed.Data.URL, nil
}

func formatExpiry(seconds int) string {
	switch {
	case seconds <= 0:
		return "unknown"
	case seconds%86400 == 0:
		days := seconds / 86400
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case seconds%3600 == 0:
		hours := seconds / 3600
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}
