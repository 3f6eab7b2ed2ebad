package db

const (
	UpsertJob = `
		INSERT INTO print_jobs (id, source_ref, printer_name, state, attempts, last_error, failure_kind, submitted_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			failure_kind = excluded.failure_kind,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			updated_at = CURRENT_TIMESTAMP
	`

	GetJobByID = `
		SELECT id, source_ref, printer_name, state, attempts, last_error, failure_kind, submitted_at, started_at, finished_at, updated_at
		FROM print_jobs WHERE id = ?
	`

	CountJobsByState = `
		SELECT state, COUNT(*) as count FROM print_jobs GROUP BY state
	`

	GetJobsForArchival = `
		SELECT id, source_ref, printer_name, state, attempts, last_error, failure_kind, submitted_at, started_at, finished_at, updated_at
		FROM print_jobs
		WHERE state IN ('completed', 'failed', 'cancelled') AND finished_at < datetime('now', ?)
	`
)

const (
	InsertShare = `
		INSERT INTO share_records (photo_ref, phone, host_used, image_url, sms_status, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	ListShares = `
		SELECT id, photo_ref, phone, host_used, image_url, sms_status, error, created_at
		FROM share_records ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
	`

	GetSharesForArchival = `
		SELECT id, photo_ref, phone, host_used, image_url, sms_status, error, created_at
		FROM share_records WHERE created_at < datetime('now', ?)
	`
)

const (
	GetSetting = `SELECT value, updated_at FROM settings WHERE key = ?`

	SetSetting = `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`

	DeleteSetting = `DELETE FROM settings WHERE key = ?`

	ListSettings = `SELECT key, value, updated_at FROM settings ORDER BY key ASC`
)

const (
	InsertEvent = `
		INSERT INTO events (kind, job_id, message)
		VALUES (?, ?, ?)
	`

	ListEvents = `
		SELECT id, kind, job_id, message, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
	`

	ListEventsByKind = `
		SELECT id, kind, job_id, message, created_at
		FROM events WHERE kind = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
	`

	GetEventsForArchival = `
		SELECT id, kind, job_id, message, created_at
		FROM events WHERE created_at < datetime('now', ?)
	`
)

const (
	InsertArchiveRun = `
		INSERT INTO archive_runs (archive_file, status, started_at)
		VALUES (?, ?, ?)
	`

	FinishArchiveRun = `
		UPDATE archive_runs SET
			jobs_archived = ?, shares_archived = ?, events_archived = ?,
			status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	ListArchiveRuns = `
		SELECT id, archive_file, jobs_archived, shares_archived, events_archived, status, error, started_at, finished_at
		FROM archive_runs ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?
	`
)
