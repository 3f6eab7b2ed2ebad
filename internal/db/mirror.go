package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/snapbooth/boothd/internal/core"
	"github.com/snapbooth/boothd/internal/share"
)

// Mirror copies queue and share lifecycle updates into the history
// tables. Writes are best-effort: a failed write is logged, never
// bubbled back into the print or share path.
type Mirror struct {
	log *slog.Logger
}

func NewMirror(logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{log: logger.With("component", "mirror")}
}

func (m *Mirror) RecordSubmitted(ctx context.Context, job *core.PrintJob) {
	if err := Jobs.UpsertJob(ctx, jobRecord(job)); err != nil {
		m.log.Error("failed to mirror submitted job", "job_id", job.ID, "error", err)
		return
	}
	m.recordEvent(ctx, "job_submitted", job.ID,
		fmt.Sprintf("job submitted for %s on printer %q", job.SourceRef, job.PrinterName))
}

func (m *Mirror) RecordUpdate(ctx context.Context, job *core.PrintJob) {
	if err := Jobs.UpsertJob(ctx, jobRecord(job)); err != nil {
		m.log.Error("failed to mirror job update", "job_id", job.ID, "error", err)
		return
	}

	switch job.State {
	case core.StateCompleted:
		m.recordEvent(ctx, "job_completed", job.ID,
			fmt.Sprintf("printed %s after %d attempt(s)", job.SourceRef, job.Attempts))
	case core.StateFailed:
		m.recordEvent(ctx, "job_failed", job.ID,
			fmt.Sprintf("%s: %s", job.FailureKind, job.LastError))
	case core.StateCancelled:
		m.recordEvent(ctx, "job_cancelled", job.ID,
			fmt.Sprintf("job for %s cancelled while queued", job.SourceRef))
	}
}

func (m *Mirror) RecordShare(ctx context.Context, photoRef, phone string, res *share.Result) {
	rec := &ShareRecord{
		PhotoRef:  photoRef,
		Phone:     phone,
		HostUsed:  res.HostUsed,
		ImageURL:  res.ImageURL,
		SMSStatus: string(res.SMSStatus),
		Error:     res.Error,
	}
	if err := Shares.CreateShare(ctx, rec); err != nil {
		m.log.Error("failed to record share", "photo", photoRef, "error", err)
		return
	}

	if res.SMSStatus == share.SMSSent {
		m.recordEvent(ctx, "share_sent", "",
			fmt.Sprintf("shared %s via %s", photoRef, res.HostUsed))
	} else {
		m.recordEvent(ctx, "share_failed", "",
			fmt.Sprintf("share of %s failed: %s", photoRef, res.Error))
	}
}

func (m *Mirror) recordEvent(ctx context.Context, kind, jobID, message string) {
	e := &Event{Kind: kind, JobID: jobID, Message: message}
	if err := Events.CreateEvent(ctx, e); err != nil {
		m.log.Error("failed to record event", "kind", kind, "error", err)
	}
}

func jobRecord(job *core.PrintJob) *PrintJob {
	return &PrintJob{
		ID:          job.ID,
		SourceRef:   job.SourceRef,
		PrinterName: job.PrinterName,
		State:       string(job.State),
		Attempts:    job.Attempts,
		LastError:   job.LastError,
		FailureKind: string(job.FailureKind),
		SubmittedAt: job.SubmittedAt,
		StartedAt:   job.StartedAt,
		FinishedAt:  job.FinishedAt,
	}
}
