package db

import (
	"time"
)

type PrintJob struct {
	ID          string     `json:"id"`
	SourceRef   string     `json:"source_ref"`
	PrinterName string     `json:"printer_name"`
	State       string     `json:"state"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	FailureKind string     `json:"failure_kind,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ShareRecord struct {
	ID        int64     `json:"id"`
	PhotoRef  string    `json:"photo_ref"`
	Phone     string    `json:"phone"`
	HostUsed  string    `json:"host_used,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	SMSStatus string    `json:"sms_status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Event struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	JobID     string    `json:"job_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type ArchiveRun struct {
	ID             int64      `json:"id"`
	ArchiveFile    string     `json:"archive_file"`
	JobsArchived   int64      `json:"jobs_archived"`
	SharesArchived int64      `json:"shares_archived"`
	EventsArchived int64      `json:"events_archived"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type JobFilter struct {
	State    string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
