package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snapbooth/boothd/internal/config"
	"github.com/snapbooth/boothd/internal/db"
)

const sweepInterval = 24 * time.Hour

// Archiver moves terminal history rows older than the retention window
// into monthly SQLite files. Pruning the live tables afterwards is
// opt-in; the default keeps history queryable and only copies.
type Archiver struct {
	cfg    config.DatabaseConfig
	log    *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

type ArchiveFile struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Month     string    `json:"month"`
}

func NewArchiver(cfg config.DatabaseConfig, logger *slog.Logger) (*Archiver, error) {
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = "./data/archives"
	}
	if cfg.ArchiveDays <= 0 {
		cfg.ArchiveDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.ArchivePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Archiver{
		cfg:    cfg,
		log:    logger.With("component", "archiver"),
		stopCh: make(chan struct{}),
	}, nil
}

func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.sweepLoop()
}

func (a *Archiver) Stop() {
	close(a.stopCh)
	a.wg.Wait()
}

// SetArchiveDays adjusts the age cutoff used by the next sweep.
// Values below one are ignored.
func (a *Archiver) SetArchiveDays(days int) {
	if days <= 0 {
		return
	}
	a.mu.Lock()
	a.cfg.ArchiveDays = days
	a.mu.Unlock()
}

func (a *Archiver) GetArchiveDays() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.ArchiveDays
}

func (a *Archiver) SetArchivePrune(prune bool) {
	a.mu.Lock()
	a.cfg.ArchivePrune = prune
	a.mu.Unlock()
}

func (a *Archiver) GetArchivePrune() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.ArchivePrune
}

func (a *Archiver) sweepLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if _, err := a.RunArchive(context.Background()); err != nil {
				a.log.Error("scheduled archive sweep failed", "error", err)
			}
		}
	}
}

// RunArchive performs one sweep. It returns the run record; a run with
// status "skipped" means nothing was old enough to move.
func (a *Archiver) RunArchive(ctx context.Context) (*db.ArchiveRun, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	jobs, err := db.Jobs.GetJobsForArchival(ctx, a.cfg.ArchiveDays)
	if err != nil {
		return nil, fmt.Errorf("failed to collect jobs for archival: %w", err)
	}
	shares, err := db.Shares.GetSharesForArchival(ctx, a.cfg.ArchiveDays)
	if err != nil {
		return nil, fmt.Errorf("failed to collect share records for archival: %w", err)
	}
	events, err := db.Events.GetEventsForArchival(ctx, a.cfg.ArchiveDays)
	if err != nil {
		return nil, fmt.Errorf("failed to collect events for archival: %w", err)
	}

	if len(jobs) == 0 && len(shares) == 0 && len(events) == 0 {
		return &db.ArchiveRun{Status: "skipped", StartedAt: time.Now()}, nil
	}

	filename := fmt.Sprintf("archive_%s.db", time.Now().Format("2006_01"))
	run := &db.ArchiveRun{
		ArchiveFile: filename,
		Status:      "running",
		StartedAt:   time.Now(),
	}
	if err := db.Archive.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	exportErr := a.export(filepath.Join(a.cfg.ArchivePath, filename), jobs, shares, events)
	now := time.Now()
	run.FinishedAt = &now

	if exportErr != nil {
		run.Status = "failed"
		run.Error = exportErr.Error()
		if err := db.Archive.FinishRun(ctx, run); err != nil {
			a.log.Error("failed to record archive run", "error", err)
		}
		return run, fmt.Errorf("failed to export archive: %w", exportErr)
	}

	run.JobsArchived = int64(len(jobs))
	run.SharesArchived = int64(len(shares))
	run.EventsArchived = int64(len(events))
	run.Status = "completed"

	if a.cfg.ArchivePrune {
		if err := a.prune(ctx, jobs, shares, events); err != nil {
			run.Error = fmt.Sprintf("prune failed: %v", err)
			a.log.Error("failed to prune archived rows", "error", err)
		}
	}

	if err := db.Archive.FinishRun(ctx, run); err != nil {
		a.log.Error("failed to record archive run", "error", err)
	}

	a.log.Info("archive sweep completed", "file", filename,
		"jobs", run.JobsArchived, "shares", run.SharesArchived, "events", run.EventsArchived,
		"pruned", a.cfg.ArchivePrune)
	return run, nil
}

func (a *Archiver) export(path string, jobs []*db.PrintJob, shares []*db.ShareRecord, events []*db.Event) error {
	archiveDB, err := a.openOrCreateArchiveDB(path)
	if err != nil {
		return fmt.Errorf("failed to open archive database: %w", err)
	}
	defer archiveDB.Close()

	tx, err := archiveDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}

	for _, j := range jobs {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO print_jobs (id, source_ref, printer_name, state, attempts, last_error, failure_kind, submitted_at, started_at, finished_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, j.ID, j.SourceRef, j.PrinterName, j.State, j.Attempts, j.LastError,
			j.FailureKind, j.SubmittedAt, j.StartedAt, j.FinishedAt, j.UpdatedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to archive job %s: %w", j.ID, err)
		}
	}

	for _, s := range shares {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO share_records (id, photo_ref, phone, host_used, image_url, sms_status, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, s.ID, s.PhotoRef, s.Phone, s.HostUsed, s.ImageURL, s.SMSStatus, s.Error, s.CreatedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to archive share record %d: %w", s.ID, err)
		}
	}

	for _, e := range events {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO events (id, kind, job_id, message, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, e.Kind, e.JobID, e.Message, e.CreatedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to archive event %d: %w", e.ID, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO archive_metadata (id, archived_at, source_database)
		VALUES (1, ?, 'main')
	`, time.Now()); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update archive metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}
	return nil
}

func (a *Archiver) openOrCreateArchiveDB(path string) (*sql.DB, error) {
	archiveDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = archiveDB.Exec(`
		CREATE TABLE IF NOT EXISTS print_jobs (
			id TEXT PRIMARY KEY,
			source_ref TEXT NOT NULL,
			printer_name TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			failure_kind TEXT NOT NULL DEFAULT '',
			submitted_at DATETIME NOT NULL,
			started_at DATETIME,
			finished_at DATETIME,
			updated_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS share_records (
			id INTEGER PRIMARY KEY,
			photo_ref TEXT NOT NULL,
			phone TEXT NOT NULL,
			host_used TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			sms_status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			job_id TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS archive_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			archived_at DATETIME,
			source_database TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_archive_jobs_finished_at ON print_jobs(finished_at);
		CREATE INDEX IF NOT EXISTS idx_archive_jobs_state ON print_jobs(state);
	`)
	if err != nil {
		archiveDB.Close()
		return nil, err
	}

	return archiveDB, nil
}

// prune deletes exactly the exported rows, by id, so rows that became
// eligible mid-sweep survive until the next one.
func (a *Archiver) prune(ctx context.Context, jobs []*db.PrintJob, shares []*db.ShareRecord, events []*db.Event) error {
	tx, err := db.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, j := range jobs {
		if _, err := tx.Exec("DELETE FROM print_jobs WHERE id = ?", j.ID); err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, s := range shares {
		if _, err := tx.Exec("DELETE FROM share_records WHERE id = ?", s.ID); err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, e := range events {
		if _, err := tx.Exec("DELETE FROM events WHERE id = ?", e.ID); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (a *Archiver) ListArchives() ([]*ArchiveFile, error) {
	files, err := os.ReadDir(a.cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var archives []*ArchiveFile
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".db") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		archive := &ArchiveFile{
			Filename:  file.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}

		if strings.HasPrefix(file.Name(), "archive_") {
			month := strings.TrimPrefix(file.Name(), "archive_")
			month = strings.TrimSuffix(month, ".db")
			archive.Month = strings.ReplaceAll(month, "_", "-")
		}

		archives = append(archives, archive)
	}

	return archives, nil
}
