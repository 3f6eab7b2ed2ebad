package core

import (
	"context"
	"time"
)

type JobState string

const (
	StateQueued    JobState = "queued"
	StatePrinting  JobState = "printing"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

type FailureKind string

const (
	KindPaperJam        FailureKind = "paper_jam"
	KindNoPaper         FailureKind = "no_paper"
	KindNoInk           FailureKind = "no_ink"
	KindLowInk          FailureKind = "low_ink"
	KindPrinterOffline  FailureKind = "printer_offline"
	KindConnectionError FailureKind = "connection_error"
	KindUnknown         FailureKind = "unknown"
)

type PrintJob struct {
	ID          string      `json:"id"`
	SourceRef   string      `json:"source_ref"`
	PrinterName string      `json:"printer_name"`
	State       JobState    `json:"state"`
	Attempts    int         `json:"attempts"`
	LastError   string      `json:"last_error,omitempty"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	SubmittedAt time.Time   `json:"submitted_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty"`
}

type QueueStats struct {
	Queued    int `json:"queued"`
	Printing  int `json:"printing"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
	Depth     int `json:"depth"`
}

type PrinterAdapter interface {
	ListPrinters(ctx context.Context) ([]string, error)
	Print(ctx context.Context, printerName string, photo []byte) error
	DefaultPrinter(ctx context.Context) (string, error)
}

type PhotoStore interface {
	Stat(ref string) error
	ReadPhoto(ref string) ([]byte, error)
}

type AlertSink interface {
	NotifyFailure(kind FailureKind, contextText string)
}

type JobRecorder interface {
	RecordSubmitted(ctx context.Context, job *PrintJob)
	RecordUpdate(ctx context.Context, job *PrintJob)
}
