package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	photos map[string][]byte
}

func (s *fakeStore) Stat(ref string) error {
	if _, ok := s.photos[ref]; !ok {
		return errors.New("no such photo")
	}
	return nil
}

func (s *fakeStore) ReadPhoto(ref string) ([]byte, error) {
	data, ok := s.photos[ref]
	if !ok {
		return nil, errors.New("no such photo")
	}
	return data, nil
}

type fakePrinter struct {
	mu          sync.Mutex
	defaultName string
	errs        []error
	printed     []string
	printers    []string
}

func (p *fakePrinter) ListPrinters(ctx context.Context) ([]string, error) {
	return []string{p.defaultName}, nil
}

func (p *fakePrinter) DefaultPrinter(ctx context.Context) (string, error) {
	return p.defaultName, nil
}

func (p *fakePrinter) Print(ctx context.Context, printerName string, photo []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printed = append(p.printed, string(photo))
	p.printers = append(p.printers, printerName)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return err
	}
	return nil
}

func (p *fakePrinter) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.printed)
}

func (p *fakePrinter) sequence() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.printed...)
}

type fakeAlerts struct {
	mu    sync.Mutex
	kinds []FailureKind
	texts []string
}

func (a *fakeAlerts) NotifyFailure(kind FailureKind, contextText string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds = append(a.kinds, kind)
	a.texts = append(a.texts, contextText)
}

func (a *fakeAlerts) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.kinds)
}

func newTestQueue(cfg QueueConfig, photos map[string][]byte, printErrs []error) (*PrintQueue, *fakePrinter, *fakeAlerts) {
	store := &fakeStore{photos: photos}
	printer := &fakePrinter{defaultName: "booth-printer", errs: printErrs}
	alerts := &fakeAlerts{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := NewPrintQueue(cfg, store, printer, alerts, nil, logger)
	return q, printer, alerts
}

func waitForState(t *testing.T, q *PrintQueue, jobID string, want JobState) *PrintJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.GetStatus(jobID)
		if err == nil && job.State == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := q.GetStatus(jobID)
	t.Fatalf("job %s never reached %s, last seen: %+v", jobID, want, job)
	return nil
}

func TestSubmitInvalidSource(t *testing.T) {
	q, printer, _ := newTestQueue(QueueConfig{WorkerCount: 1}, map[string][]byte{}, nil)

	_, err := q.Submit(context.Background(), "missing.jpg", "")
	if !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("Submit() error = %v, want ErrInvalidSource", err)
	}
	if got := q.Stats().Total; got != 0 {
		t.Errorf("Stats().Total = %d, want 0 after rejected submit", got)
	}
	if printer.calls() != 0 {
		t.Errorf("printer called %d times for rejected submit", printer.calls())
	}
}

func TestSubmitEmptySource(t *testing.T) {
	q, _, _ := newTestQueue(QueueConfig{}, map[string][]byte{}, nil)

	if _, err := q.Submit(context.Background(), "", ""); !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("Submit(\"\") error = %v, want ErrInvalidSource", err)
	}
}

func TestSubmitAndComplete(t *testing.T) {
	photos := map[string][]byte{"img1.jpg": []byte("jpeg-bytes")}
	q, printer, alerts := newTestQueue(QueueConfig{WorkerCount: 1, PrintTimeout: time.Second}, photos, nil)
	q.Start()
	defer q.Stop()

	id, err := q.Submit(context.Background(), "img1.jpg", "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	job := waitForState(t, q, id, StateCompleted)
	if job.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0 for a first-try success", job.Attempts)
	}
	if job.PrinterName != "booth-printer" {
		t.Errorf("PrinterName = %q, want default resolved at submit", job.PrinterName)
	}
	if job.StartedAt == nil || job.FinishedAt == nil {
		t.Errorf("StartedAt/FinishedAt not set: %+v", job)
	}
	if alerts.count() != 0 {
		t.Errorf("alerts fired for a successful job: %d", alerts.count())
	}
	if printer.calls() != 1 {
		t.Errorf("printer calls = %d, want 1", printer.calls())
	}

	// terminal snapshots are stable
	again, err := q.GetStatus(id)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if again.State != job.State || !again.FinishedAt.Equal(*job.FinishedAt) {
		t.Errorf("GetStatus() not idempotent for terminal job: %+v vs %+v", again, job)
	}

	// completed jobs cannot be cancelled
	ok, err := q.Cancel(id)
	if err != nil || ok {
		t.Errorf("Cancel(completed) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestQueueFull(t *testing.T) {
	photos := map[string][]byte{"a.jpg": {1}, "b.jpg": {2}, "c.jpg": {3}}
	q, _, _ := newTestQueue(QueueConfig{Capacity: 2, WorkerCount: 1}, photos, nil)
	// workers not started, so the channel stays full

	if _, err := q.Submit(context.Background(), "a.jpg", "p"); err != nil {
		t.Fatalf("Submit(a) error = %v", err)
	}
	if _, err := q.Submit(context.Background(), "b.jpg", "p"); err != nil {
		t.Fatalf("Submit(b) error = %v", err)
	}

	start := time.Now()
	_, err := q.Submit(context.Background(), "c.jpg", "p")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Submit(c) error = %v, want ErrQueueFull", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Submit blocked for %v on a full queue", elapsed)
	}
	if got := q.Stats().Total; got != 2 {
		t.Errorf("Stats().Total = %d, want 2 (rejected job not registered)", got)
	}
}

func TestCancelQueued(t *testing.T) {
	photos := map[string][]byte{"a.jpg": []byte("A"), "b.jpg": []byte("B")}
	q, printer, _ := newTestQueue(QueueConfig{WorkerCount: 1}, photos, nil)

	id1, err := q.Submit(context.Background(), "a.jpg", "p")
	if err != nil {
		t.Fatalf("Submit(a) error = %v", err)
	}

	ok, err := q.Cancel(id1)
	if err != nil || !ok {
		t.Fatalf("Cancel(queued) = (%v, %v), want (true, nil)", ok, err)
	}
	job, _ := q.GetStatus(id1)
	if job.State != StateCancelled {
		t.Fatalf("state after cancel = %s, want cancelled", job.State)
	}

	// second cancel is a no-op
	ok, err = q.Cancel(id1)
	if err != nil || ok {
		t.Errorf("Cancel(cancelled) = (%v, %v), want (false, nil)", ok, err)
	}

	// the cancelled job is skipped by workers
	id2, err := q.Submit(context.Background(), "b.jpg", "p")
	if err != nil {
		t.Fatalf("Submit(b) error = %v", err)
	}
	q.Start()
	defer q.Stop()
	waitForState(t, q, id2, StateCompleted)

	if seq := printer.sequence(); len(seq) != 1 || seq[0] != "B" {
		t.Errorf("printed sequence = %v, want only [B]", seq)
	}
}

func TestCancelUnknownJob(t *testing.T) {
	q, _, _ := newTestQueue(QueueConfig{}, map[string][]byte{}, nil)

	if _, err := q.Cancel("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Cancel(unknown) error = %v, want ErrJobNotFound", err)
	}
	if _, err := q.GetStatus("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetStatus(unknown) error = %v, want ErrJobNotFound", err)
	}
}

func TestRetryThenTerminalFailure(t *testing.T) {
	photos := map[string][]byte{"img.jpg": []byte("X")}
	jam := errors.New("Paper Jam - tray 1 empty")
	q, printer, alerts := newTestQueue(QueueConfig{WorkerCount: 1, MaxAttempts: 2}, photos, []error{jam, jam})
	q.Start()
	defer q.Stop()

	id, err := q.Submit(context.Background(), "img.jpg", "p")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	job := waitForState(t, q, id, StateFailed)
	if job.Attempts != 2 {
		t.Errorf("Attempts = %d, want exactly 2", job.Attempts)
	}
	if job.LastError != jam.Error() {
		t.Errorf("LastError = %q, want raw adapter text", job.LastError)
	}
	if job.FailureKind != KindPaperJam {
		t.Errorf("FailureKind = %s, want paper_jam", job.FailureKind)
	}
	if printer.calls() != 2 {
		t.Errorf("printer calls = %d, want 2", printer.calls())
	}
	if alerts.count() != 1 {
		t.Fatalf("alerts = %d, want exactly 1 per terminal failure", alerts.count())
	}
	if alerts.kinds[0] != KindPaperJam {
		t.Errorf("alert kind = %s, want paper_jam", alerts.kinds[0])
	}
}

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	photos := map[string][]byte{"img.jpg": []byte("X")}
	q, printer, alerts := newTestQueue(QueueConfig{WorkerCount: 1, MaxAttempts: 2}, photos,
		[]error{errors.New("connection reset by peer")})
	q.Start()
	defer q.Stop()

	id, err := q.Submit(context.Background(), "img.jpg", "p")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	job := waitForState(t, q, id, StateCompleted)
	if job.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 failed attempt before success", job.Attempts)
	}
	if printer.calls() != 2 {
		t.Errorf("printer calls = %d, want 2", printer.calls())
	}
	if alerts.count() != 0 {
		t.Errorf("alerts = %d, want none for a recovered job", alerts.count())
	}
}

func TestRetryGoesToBackOfQueue(t *testing.T) {
	photos := map[string][]byte{"a.jpg": []byte("A"), "b.jpg": []byte("B")}
	q, printer, _ := newTestQueue(QueueConfig{WorkerCount: 1, MaxAttempts: 2}, photos,
		[]error{errors.New("printer offline")})

	ida, err := q.Submit(context.Background(), "a.jpg", "p")
	if err != nil {
		t.Fatalf("Submit(a) error = %v", err)
	}
	idb, err := q.Submit(context.Background(), "b.jpg", "p")
	if err != nil {
		t.Fatalf("Submit(b) error = %v", err)
	}

	q.Start()
	defer q.Stop()
	waitForState(t, q, ida, StateCompleted)
	waitForState(t, q, idb, StateCompleted)

	want := []string{"A", "B", "A"}
	got := printer.sequence()
	if len(got) != len(want) {
		t.Fatalf("printed sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("printed sequence = %v, want %v (retry must re-enter at the back)", got, want)
		}
	}
}

func TestAttemptsMonotonic(t *testing.T) {
	photos := map[string][]byte{"img.jpg": []byte("X")}
	fail := errors.New("network is down")
	q, _, _ := newTestQueue(QueueConfig{WorkerCount: 1, MaxAttempts: 3}, photos, []error{fail, fail, fail})
	q.Start()
	defer q.Stop()

	id, err := q.Submit(context.Background(), "img.jpg", "p")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	last := -1
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.GetStatus(id)
		if err != nil {
			t.Fatalf("GetStatus() error = %v", err)
		}
		if job.Attempts < last {
			t.Fatalf("Attempts went backwards: %d -> %d", last, job.Attempts)
		}
		last = job.Attempts
		if job.State == StateFailed {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	job := waitForState(t, q, id, StateFailed)
	if job.Attempts != 3 {
		t.Errorf("final Attempts = %d, want 3", job.Attempts)
	}
}
