package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snapbooth/boothd/internal/metrics"
)

var (
	ErrInvalidSource = errors.New("source photo not found or unreadable")
	ErrQueueFull     = errors.New("print queue is full")
	ErrJobNotFound   = errors.New("print job not found")
)

// Legal state transitions. The printing -> queued edge is the retry
// path; terminal states have no outgoing edges.
var transitions = map[JobState][]JobState{
	StateQueued:   {StatePrinting, StateCancelled},
	StatePrinting: {StateCompleted, StateFailed, StateQueued},
}

type QueueConfig struct {
	Capacity     int
	WorkerCount  int
	MaxAttempts  int
	PrintTimeout time.Duration
}

type PrintQueue struct {
	store    PhotoStore
	printer  PrinterAdapter
	alerts   AlertSink
	recorder JobRecorder
	log      *slog.Logger

	cfg   QueueConfig
	jobs  map[string]*PrintJob
	jobCh chan string

	mu      sync.RWMutex
	wg      sync.WaitGroup
	stopCh  chan struct{}
	running bool
}

func NewPrintQueue(cfg QueueConfig, store PhotoStore, printer PrinterAdapter, alerts AlertSink, recorder JobRecorder, logger *slog.Logger) *PrintQueue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 100
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.PrintTimeout <= 0 {
		cfg.PrintTimeout = 2 * time.Minute
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PrintQueue{
		store:    store,
		printer:  printer,
		alerts:   alerts,
		recorder: recorder,
		log:      logger.With("component", "queue"),
		cfg:      cfg,
		jobs:     make(map[string]*PrintJob),
		jobCh:    make(chan string, cfg.Capacity),
		stopCh:   make(chan struct{}),
	}
}

func (q *PrintQueue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	for i := 0; i < q.cfg.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.log.Info("print queue started", "workers", q.cfg.WorkerCount, "capacity", q.cfg.Capacity)
}

func (q *PrintQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()
	q.log.Info("print queue stopped")
}

// Submit validates the source, resolves the target printer and places
// the job at the back of the queue. It never blocks: a full queue is
// reported immediately.
func (q *PrintQueue) Submit(ctx context.Context, sourceRef, printerName string) (string, error) {
	if sourceRef == "" {
		return "", ErrInvalidSource
	}
	if err := q.store.Stat(sourceRef); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, sourceRef)
	}

	if printerName == "" {
		name, err := q.printer.DefaultPrinter(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to resolve default printer: %w", err)
		}
		printerName = name
	}

	job := &PrintJob{
		ID:          uuid.NewString(),
		SourceRef:   sourceRef,
		PrinterName: printerName,
		State:       StateQueued,
		SubmittedAt: time.Now(),
	}

	q.mu.Lock()
	select {
	case q.jobCh <- job.ID:
		q.jobs[job.ID] = job
	default:
		q.mu.Unlock()
		return "", ErrQueueFull
	}
	snap := *job
	q.mu.Unlock()

	metrics.JobsSubmitted.Inc()
	metrics.QueueDepth.Inc()
	q.recorder.RecordSubmitted(ctx, &snap)
	q.log.Info("job queued", "job_id", job.ID, "source", sourceRef, "printer", printerName)
	return job.ID, nil
}

// GetStatus returns a snapshot of the job. Terminal jobs keep
// returning the same snapshot for the life of the process.
func (q *PrintQueue) GetStatus(jobID string) (*PrintJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	snap := *job
	return &snap, nil
}

// Cancel succeeds only while the job is still waiting in the queue.
// Any other state returns false without an error.
func (q *PrintQueue) Cancel(jobID string) (bool, error) {
	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return false, ErrJobNotFound
	}
	if job.State != StateQueued {
		q.mu.Unlock()
		return false, nil
	}
	q.setStateLocked(job, StateCancelled)
	snap := *job
	q.mu.Unlock()

	q.recorder.RecordUpdate(context.Background(), &snap)
	metrics.JobsFinished.WithLabelValues(string(StateCancelled)).Inc()
	q.log.Info("job cancelled", "job_id", jobID)
	return true, nil
}

func (q *PrintQueue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := QueueStats{Depth: len(q.jobCh)}
	for _, job := range q.jobs {
		switch job.State {
		case StateQueued:
			stats.Queued++
		case StatePrinting:
			stats.Printing++
		case StateCompleted:
			stats.Completed++
		case StateFailed:
			stats.Failed++
		case StateCancelled:
			stats.Cancelled++
		}
		stats.Total++
	}
	return stats
}

func (q *PrintQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case jobID := <-q.jobCh:
			metrics.QueueDepth.Dec()
			q.processJob(jobID)
		}
	}
}

func (q *PrintQueue) processJob(jobID string) {
	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}
	if job.State != StateQueued {
		// cancelled while waiting in the channel
		q.mu.Unlock()
		return
	}
	q.setStateLocked(job, StatePrinting)
	snap := *job
	q.mu.Unlock()

	q.recorder.RecordUpdate(context.Background(), &snap)
	q.log.Info("printing", "job_id", jobID, "printer", snap.PrinterName, "attempt", snap.Attempts+1)

	metrics.PrintAttempts.Inc()

	photo, err := q.store.ReadPhoto(snap.SourceRef)
	if err != nil {
		q.handleFailure(jobID, fmt.Sprintf("read photo %s: %v", snap.SourceRef, err))
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.PrintTimeout)
	err = q.printer.Print(ctx, snap.PrinterName, photo)
	cancel()
	if err != nil {
		q.handleFailure(jobID, err.Error())
		return
	}

	q.complete(jobID, time.Since(start))
}

func (q *PrintQueue) complete(jobID string, elapsed time.Duration) {
	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}
	q.setStateLocked(job, StateCompleted)
	snap := *job
	q.mu.Unlock()

	q.recorder.RecordUpdate(context.Background(), &snap)
	metrics.JobsFinished.WithLabelValues(string(StateCompleted)).Inc()
	metrics.PrintDuration.Observe(elapsed.Seconds())
	q.log.Info("job completed", "job_id", jobID, "duration_ms", elapsed.Milliseconds())
}

// handleFailure records the failed attempt, then either requeues the
// job at the back of the line or fails it terminally. The terminal
// branch is the single place a failure alert fires.
func (q *PrintQueue) handleFailure(jobID, rawErr string) {
	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}

	job.Attempts++
	job.LastError = rawErr

	if job.Attempts < q.cfg.MaxAttempts {
		select {
		case q.jobCh <- jobID:
			q.setStateLocked(job, StateQueued)
			snap := *job
			q.mu.Unlock()

			metrics.QueueDepth.Inc()
			q.recorder.RecordUpdate(context.Background(), &snap)
			q.log.Warn("print attempt failed, requeued",
				"job_id", jobID, "attempt", snap.Attempts, "error", rawErr)
			return
		default:
			// queue filled up while this job was printing; no slot to retry in
		}
	}

	kind := Classify(rawErr)
	job.FailureKind = kind
	q.setStateLocked(job, StateFailed)
	snap := *job
	q.mu.Unlock()

	q.recorder.RecordUpdate(context.Background(), &snap)
	metrics.JobsFinished.WithLabelValues(string(StateFailed)).Inc()
	q.log.Error("print job failed",
		"job_id", jobID, "kind", string(kind), "attempts", snap.Attempts, "error", rawErr)
	q.alerts.NotifyFailure(kind, fmt.Sprintf("job %s on printer %s: %s", jobID, snap.PrinterName, rawErr))
}

func (q *PrintQueue) setStateLocked(job *PrintJob, to JobState) bool {
	allowed := false
	for _, next := range transitions[job.State] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		q.log.Error("illegal state transition",
			"job_id", job.ID, "from", string(job.State), "to", string(to))
		return false
	}

	job.State = to
	now := time.Now()
	switch to {
	case StatePrinting:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case StateCompleted, StateFailed, StateCancelled:
		if job.FinishedAt == nil {
			job.FinishedAt = &now
		}
	}
	return true
}

type nopRecorder struct{}

func (nopRecorder) RecordSubmitted(context.Context, *PrintJob) {}
func (nopRecorder) RecordUpdate(context.Context, *PrintJob)    {}
