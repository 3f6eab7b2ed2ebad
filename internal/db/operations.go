package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type JobOperations struct{}

func (o *JobOperations) UpsertJob(ctx context.Context, j *PrintJob) error {
	_, err := GetDB().ExecContext(ctx, UpsertJob,
		j.ID, j.SourceRef, j.PrinterName, j.State, j.Attempts,
		j.LastError, j.FailureKind, j.SubmittedAt, j.StartedAt, j.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

func (o *JobOperations) GetJobByID(ctx context.Context, id string) (*PrintJob, error) {
	j := &PrintJob{}
	err := GetDB().QueryRowContext(ctx, GetJobByID, id).Scan(
		&j.ID, &j.SourceRef, &j.PrinterName, &j.State, &j.Attempts,
		&j.LastError, &j.FailureKind, &j.SubmittedAt, &j.StartedAt,
		&j.FinishedAt, &j.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (o *JobOperations) ListJobs(ctx context.Context, filter JobFilter) ([]*PrintJob, error) {
	var conditions []string
	var args []interface{}

	if filter.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, filter.State)
	}
	if filter.FromDate != nil {
		conditions = append(conditions, "submitted_at >= ?")
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != nil {
		conditions = append(conditions, "submitted_at <= ?")
		args = append(args, filter.ToDate)
	}

	query := "SELECT id, source_ref, printer_name, state, attempts, last_error, failure_kind, submitted_at, started_at, finished_at, updated_at FROM print_jobs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submitted_at DESC"

	limit := 100
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	offset := filter.Offset

	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (o *JobOperations) CountJobsByState(ctx context.Context) (map[string]int64, error) {
	rows, err := GetDB().QueryContext(ctx, CountJobsByState)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

func (o *JobOperations) GetJobsForArchival(ctx context.Context, olderThanDays int) ([]*PrintJob, error) {
	cutoff := fmt.Sprintf("-%d days", olderThanDays)
	rows, err := GetDB().QueryContext(ctx, GetJobsForArchival, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs for archival: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*PrintJob, error) {
	var jobs []*PrintJob
	for rows.Next() {
		j := &PrintJob{}
		if err := rows.Scan(
			&j.ID, &j.SourceRef, &j.PrinterName, &j.State, &j.Attempts,
			&j.LastError, &j.FailureKind, &j.SubmittedAt, &j.StartedAt,
			&j.FinishedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type ShareOperations struct{}

func (o *ShareOperations) CreateShare(ctx context.Context, r *ShareRecord) error {
	result, err := GetDB().ExecContext(ctx, InsertShare,
		r.PhotoRef, r.Phone, r.HostUsed, r.ImageURL, r.SMSStatus, r.Error)
	if err != nil {
		return fmt.Errorf("failed to create share record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get share record id: %w", err)
	}
	r.ID = id
	return nil
}

func (o *ShareOperations) ListShares(ctx context.Context, limit, offset int) ([]*ShareRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := GetDB().QueryContext(ctx, ListShares, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list share records: %w", err)
	}
	defer rows.Close()

	return scanShares(rows)
}

func (o *ShareOperations) GetSharesForArchival(ctx context.Context, olderThanDays int) ([]*ShareRecord, error) {
	cutoff := fmt.Sprintf("-%d days", olderThanDays)
	rows, err := GetDB().QueryContext(ctx, GetSharesForArchival, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get share records for archival: %w", err)
	}
	defer rows.Close()

	return scanShares(rows)
}

func scanShares(rows *sql.Rows) ([]*ShareRecord, error) {
	var records []*ShareRecord
	for rows.Next() {
		r := &ShareRecord{}
		if err := rows.Scan(
			&r.ID, &r.PhotoRef, &r.Phone, &r.HostUsed, &r.ImageURL,
			&r.SMSStatus, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan share record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type SettingsOperations struct{}

func (o *SettingsOperations) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{Key: key}
	err := GetDB().QueryRowContext(ctx, GetSetting, key).Scan(&s.Value, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return s, nil
}

func (o *SettingsOperations) SetSetting(ctx context.Context, key, value string) error {
	_, err := GetDB().ExecContext(ctx, SetSetting, key, value, value)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (o *SettingsOperations) DeleteSetting(ctx context.Context, key string) error {
	_, err := GetDB().ExecContext(ctx, DeleteSetting, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

func (o *SettingsOperations) ListSettings(ctx context.Context) ([]*Setting, error) {
	rows, err := GetDB().QueryContext(ctx, ListSettings)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		s := &Setting{}
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

type EventOperations struct{}

func (o *EventOperations) CreateEvent(ctx context.Context, e *Event) error {
	result, err := GetDB().ExecContext(ctx, InsertEvent, e.Kind, e.JobID, e.Message)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	e.ID = id
	return nil
}

func (o *EventOperations) ListEvents(ctx context.Context, kind string, limit, offset int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if kind != "" {
		rows, err = GetDB().QueryContext(ctx, ListEventsByKind, kind, limit, offset)
	} else {
		rows, err = GetDB().QueryContext(ctx, ListEvents, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (o *EventOperations) GetEventsForArchival(ctx context.Context, olderThanDays int) ([]*Event, error) {
	cutoff := fmt.Sprintf("-%d days", olderThanDays)
	rows, err := GetDB().QueryContext(ctx, GetEventsForArchival, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for archival: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Kind, &e.JobID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type ArchiveOperations struct{}

func (o *ArchiveOperations) CreateRun(ctx context.Context, a *ArchiveRun) error {
	result, err := GetDB().ExecContext(ctx, InsertArchiveRun,
		a.ArchiveFile, a.Status, a.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create archive run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get archive run id: %w", err)
	}
	a.ID = id
	return nil
}

func (o *ArchiveOperations) FinishRun(ctx context.Context, a *ArchiveRun) error {
	_, err := GetDB().ExecContext(ctx, FinishArchiveRun,
		a.JobsArchived, a.SharesArchived, a.EventsArchived,
		a.Status, a.Error, a.FinishedAt, a.ID)
	if err != nil {
		return fmt.Errorf("failed to finish archive run: %w", err)
	}
	return nil
}

func (o *ArchiveOperations) ListRuns(ctx context.Context, limit, offset int) ([]*ArchiveRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := GetDB().QueryContext(ctx, ListArchiveRuns, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive runs: %w", err)
	}
	defer rows.Close()

	var runs []*ArchiveRun
	for rows.Next() {
		a := &ArchiveRun{}
		if err := rows.Scan(
			&a.ID, &a.ArchiveFile, &a.JobsArchived, &a.SharesArchived,
			&a.EventsArchived, &a.Status, &a.Error, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive run: %w", err)
		}
		runs = append(runs, a)
	}
	return runs, rows.Err()
}

var (
	Jobs     = &JobOperations{}
	Shares   = &ShareOperations{}
	Settings = &SettingsOperations{}
	Events   = &EventOperations{}
	Archive  = &ArchiveOperations{}
)
