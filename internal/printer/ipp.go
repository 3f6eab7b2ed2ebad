package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	ipp "github.com/phin1x/go-ipp"

	"github.com/snapbooth/boothd/internal/config"
)

var (
	ErrNoPrinters    = errors.New("no printers available")
	ErrServerOffline = errors.New("print server is offline")
	ErrMissingName   = errors.New("printer name is required")
)

// DefaultPrinterKey is the settings-store key an operator sets to pin
// the booth to one printer.
const DefaultPrinterKey = "default_printer"

// SettingsSource resolves operator overrides. A missing key returns
// ok=false, never an error.
type SettingsSource interface {
	Get(ctx context.Context, key string) (string, bool)
}

// CUPS drives a CUPS server over IPP. The go-ipp client has no context
// support, so every call runs in a goroutine raced against ctx.
type CUPS struct {
	client   *ipp.CUPSClient
	cfg      config.PrinterConfig
	settings SettingsSource
	log      *slog.Logger
}

func NewCUPS(cfg config.PrinterConfig, settings SettingsSource, logger *slog.Logger) *CUPS {
	if logger == nil {
		logger = slog.Default()
	}
	return &CUPS{
		client:   ipp.NewCUPSClient(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.UseTLS),
		cfg:      cfg,
		settings: settings,
		log:      logger.With("component", "printer"),
	}
}

func (c *CUPS) ListPrinters(ctx context.Context) ([]string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	var names []string
	err := c.do(ctx, func() error {
		printers, err := c.client.GetPrinters([]string{ipp.AttributePrinterName})
		if err != nil {
			return err
		}
		for name := range printers {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	return names, nil
}

func (c *CUPS) Print(ctx context.Context, printerName string, photo []byte) error {
	if printerName == "" {
		return ErrMissingName
	}
	return c.printFile(ctx, printerName, "boothd-photo-*.jpg", photo, "photobooth photo")
}

// DefaultPrinter resolves the printer used when a job names none:
// operator setting first, then the configured name, then the first
// printer CUPS reports.
func (c *CUPS) DefaultPrinter(ctx context.Context) (string, error) {
	if c.settings != nil {
		if name, ok := c.settings.Get(ctx, DefaultPrinterKey); ok && name != "" {
			return name, nil
		}
	}

	if c.cfg.DefaultName != "" {
		return c.cfg.DefaultName, nil
	}

	printers, err := c.ListPrinters(ctx)
	if err != nil {
		return "", err
	}
	if len(printers) == 0 {
		return "", ErrNoPrinters
	}
	return printers[0], nil
}

// Reachable probes the CUPS socket without submitting anything.
func (c *CUPS) Reachable(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	err := c.do(ctx, func() error {
		return c.client.TestConnection()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerOffline, err)
	}
	return nil
}

func (c *CUPS) PrintTestPage(ctx context.Context, printerName string) error {
	if printerName == "" {
		return ErrMissingName
	}
	body := fmt.Sprintf("boothd test page\nprinter: %s\nprinted at: %s\n",
		printerName, time.Now().Format(time.RFC1123))
	return c.printFile(ctx, printerName, "boothd-test-*.txt", []byte(body), "boothd test page")
}

func (c *CUPS) printFile(ctx context.Context, printerName, pattern string, data []byte, jobName string) error {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return fmt.Errorf("failed to stage print file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage print file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage print file: %w", err)
	}

	err = c.do(ctx, func() error {
		jobID, err := c.client.PrintFile(tmp.Name(), printerName, map[string]interface{}{
			ipp.AttributeJobName: jobName,
		})
		if err != nil {
			return err
		}
		c.log.Debug("submitted print job", "printer", printerName, "cups_job_id", jobID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to print on %q: %w", printerName, err)
	}
	return nil
}

// do races op against ctx. The goroutine outlives a cancelled call at
// most until the blocked IPP request returns.
func (c *CUPS) do(ctx context.Context, op func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- op()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CUPS) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.ConnectTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	}
	return context.WithCancel(ctx)
}
