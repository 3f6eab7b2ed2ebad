package alert

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/snapbooth/boothd/internal/core"
	"github.com/snapbooth/boothd/internal/metrics"
)

// Gotify-style priorities: errors page the operator, tests stay quiet.
const (
	PriorityError  = 8
	PriorityStatus = 4
	PriorityTest   = 2
)

type Notifier interface {
	Send(title, body string, priority int) error
}

type AlertStatus struct {
	Kind     string    `json:"kind"`
	LastSent time.Time `json:"last_sent"`
	Cooling  bool      `json:"cooling"`
}

// Dispatcher rate-limits operator notifications per failure kind.
// Within the cooldown window repeat failures of the same kind are
// dropped, with no catch-up send afterwards.
type Dispatcher struct {
	notifier Notifier
	cooldown time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	lastSent map[core.FailureKind]time.Time
	now      func() time.Time
}

func NewDispatcher(notifier Notifier, cooldown time.Duration, logger *slog.Logger) *Dispatcher {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier: notifier,
		cooldown: cooldown,
		log:      logger.With("component", "alerts"),
		lastSent: make(map[core.FailureKind]time.Time),
		now:      time.Now,
	}
}

// NotifyFailure never reports notifier errors to the caller; a failed
// send is logged and does not start a cooldown window.
func (d *Dispatcher) NotifyFailure(kind core.FailureKind, contextText string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSent[kind]; ok && now.Sub(last) < d.cooldown {
		metrics.AlertsTotal.WithLabelValues(string(kind), "suppressed").Inc()
		d.log.Debug("alert suppressed by cooldown", "kind", string(kind))
		return
	}

	if err := d.notifier.Send(failureTitle(kind), contextText, PriorityError); err != nil {
		metrics.AlertsTotal.WithLabelValues(string(kind), "failed").Inc()
		d.log.Warn("failed to send alert", "kind", string(kind), "error", err)
		return
	}

	d.lastSent[kind] = now
	metrics.AlertsTotal.WithLabelValues(string(kind), "sent").Inc()
	d.log.Info("alert sent", "kind", string(kind))
}

// SendTest bypasses the cooldown in both directions: it always sends
// and it never opens a window.
func (d *Dispatcher) SendTest(kind core.FailureKind) error {
	body := fmt.Sprintf("Test notification for %s. If you can read this, alerting works.", kind)
	if err := d.notifier.Send("Test: "+failureTitle(kind), body, PriorityTest); err != nil {
		return fmt.Errorf("failed to send test alert: %w", err)
	}
	return nil
}

func (d *Dispatcher) Snapshot() []AlertStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	statuses := make([]AlertStatus, 0, len(d.lastSent))
	for kind, last := range d.lastSent {
		statuses = append(statuses, AlertStatus{
			Kind:     string(kind),
			LastSent: last,
			Cooling:  now.Sub(last) < d.cooldown,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Kind < statuses[j].Kind })
	return statuses
}

var failureTitles = map[core.FailureKind]string{
	core.KindPaperJam:        "Printer: paper jam",
	core.KindNoPaper:         "Printer: out of paper",
	core.KindNoInk:           "Printer: out of ink",
	core.KindLowInk:          "Printer: ink running low",
	core.KindPrinterOffline:  "Printer offline",
	core.KindConnectionError: "Printer connection error",
}

func failureTitle(kind core.FailureKind) string {
	if title, ok := failureTitles[kind]; ok {
		return title
	}
	return "Print failure"
}

// NopNotifier is wired when alerting is disabled. Sends only hit the
// log, so cooldown bookkeeping still applies.
type NopNotifier struct {
	Log *slog.Logger
}

func (n *NopNotifier) Send(title, body string, priority int) error {
	if n.Log != nil {
		n.Log.Info("alert (notifications disabled)", "title", title, "priority", priority)
	}
	return nil
}
