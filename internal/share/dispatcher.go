package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/snapbooth/boothd/internal/metrics"
)

var (
	ErrInvalidPhone  = errors.New("phone number failed validation")
	ErrPhotoNotFound = errors.New("photo not found")
)

const DefaultGreeting = "📸 Greetings from the PhotoBooth!"

type SMSStatus string

const (
	SMSSent   SMSStatus = "sent"
	SMSFailed SMSStatus = "failed"
)

// Result is fully populated on every non-error return: a blank
// HostUsed/ImageURL means no backend accepted the upload.
type Result struct {
	HostUsed  string    `json:"host_used"`
	ImageURL  string    `json:"image_url"`
	SMSStatus SMSStatus `json:"sms_status"`
	Error     string    `json:"error,omitempty"`
}

type PhotoSource interface {
	ReadPhoto(ref string) ([]byte, error)
}

type HostingBackend interface {
	Name() string
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Expiry() string
}

type MessageGateway interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// Recorder persists share outcomes. Recording is best-effort and must
// never fail a share.
type Recorder interface {
	RecordShare(ctx context.Context, photoRef, phone string, res *Result)
}

type nopRecorder struct{}

func (nopRecorder) RecordShare(context.Context, string, string, *Result) {}

type Config struct {
	CountryPrefix  string
	MinPhoneDigits int
	Greeting       string
}

type Dispatcher struct {
	photos   PhotoSource
	backends []HostingBackend
	gateway  MessageGateway
	recorder Recorder
	log      *slog.Logger

	mu  sync.RWMutex
	cfg Config
}

func NewDispatcher(cfg Config, photos PhotoSource, backends []HostingBackend, gateway MessageGateway, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if cfg.CountryPrefix == "" {
		cfg.CountryPrefix = "+1"
	}
	if cfg.MinPhoneDigits <= 0 {
		cfg.MinPhoneDigits = 10
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		photos:   photos,
		backends: backends,
		gateway:  gateway,
		recorder: recorder,
		cfg:      cfg,
		log:      logger.With("component", "share"),
	}
}

func (d *Dispatcher) config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// SetGreeting swaps the standing greeting prepended to every message.
// Empty input restores the default.
func (d *Dispatcher) SetGreeting(greeting string) {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	d.mu.Lock()
	d.cfg.Greeting = greeting
	d.mu.Unlock()
}

// SetCountryPrefix changes the prefix assumed for nationally dialed
// numbers. Empty input is ignored.
func (d *Dispatcher) SetCountryPrefix(prefix string) {
	if prefix == "" {
		return
	}
	d.mu.Lock()
	d.cfg.CountryPrefix = prefix
	d.mu.Unlock()
}

func (d *Dispatcher) Greeting() string {
	return d.config().Greeting
}

func (d *Dispatcher) CountryPrefix() string {
	return d.config().CountryPrefix
}

// Share uploads the photo through the backend chain and sends a single
// SMS with the resulting link. Backends are tried strictly in order;
// the first success wins and nothing is retried. Validation failures
// return an error before any photo read or network call.
func (d *Dispatcher) Share(ctx context.Context, photoRef, phone, message string) (*Result, error) {
	cfg := d.config()

	normalized, err := NormalizePhone(phone, cfg.CountryPrefix, cfg.MinPhoneDigits)
	if err != nil {
		return nil, err
	}

	data, err := d.photos.ReadPhoto(photoRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrPhotoNotFound, photoRef)
	}

	result := &Result{SMSStatus: SMSFailed}
	filename := path.Base(photoRef)

	var hosted HostingBackend
	for _, backend := range d.backends {
		link, err := backend.Upload(ctx, data, filename)
		if err != nil {
			metrics.HostUploads.WithLabelValues(backend.Name(), "error").Inc()
			d.log.Warn("hosting backend failed", "host", backend.Name(), "error", err)
			continue
		}
		metrics.HostUploads.WithLabelValues(backend.Name(), "ok").Inc()
		result.HostUsed = backend.Name()
		result.ImageURL = link
		hosted = backend
		break
	}

	if hosted == nil {
		result.Error = "all hosting backends failed"
		metrics.SharesTotal.WithLabelValues(string(SMSFailed)).Inc()
		d.log.Error("share failed, no hosting backend accepted the photo", "photo", photoRef)
		d.recorder.RecordShare(ctx, photoRef, normalized, result)
		return result, nil
	}

	text := ComposeMessage(cfg.Greeting, message, result.ImageURL, hosted.Name(), hosted.Expiry())
	if err := d.gateway.SendMessage(ctx, normalized, text); err != nil {
		result.Error = err.Error()
		metrics.SharesTotal.WithLabelValues(string(SMSFailed)).Inc()
		d.log.Error("sms send failed", "host", result.HostUsed, "error", err)
		d.recorder.RecordShare(ctx, photoRef, normalized, result)
		return result, nil
	}

	result.SMSStatus = SMSSent
	metrics.SharesTotal.WithLabelValues(string(SMSSent)).Inc()
	d.log.Info("photo shared", "host", result.HostUsed, "photo", photoRef)
	d.recorder.RecordShare(ctx, photoRef, normalized, result)
	return result, nil
}

// NormalizePhone reduces the input to digits, prepending the country
// prefix unless the caller already dialed international format.
func NormalizePhone(raw, countryPrefix string, minDigits int) (string, error) {
	digits := digitsOnly(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "+") {
		digits = digitsOnly(countryPrefix) + digits
	}
	if len(digits) < minDigits {
		return "", fmt.Errorf("%w: %q normalizes to %d digits, need at least %d",
			ErrInvalidPhone, raw, len(digits), minDigits)
	}
	return digits, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ComposeMessage(greeting, custom, imageURL, host, expiry string) string {
	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\n")
	if custom != "" {
		b.WriteString(custom)
		b.WriteString("\n\n")
	}
	b.WriteString("Your photo: ")
	b.WriteString(imageURL)
	if host != "" && expiry != "" {
		fmt.Fprintf(&b, "\n(Hosted on %s, expires in %s)", host, expiry)
	}
	return b.String()
}
