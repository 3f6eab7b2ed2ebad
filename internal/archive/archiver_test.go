package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapbooth/boothd/internal/config"
	"github.com/snapbooth/boothd/internal/db"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	if err := db.Init(db.Config{Path: ":memory:"}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init test database:", err)
		os.Exit(1)
	}
	code := m.Run()
	db.Close()
	os.Exit(code)
}

func newTestArchiver(t *testing.T, days int, prune bool) *Archiver {
	t.Helper()

	archiver, err := NewArchiver(config.DatabaseConfig{
		ArchivePath:  t.TempDir(),
		ArchiveDays:  days,
		ArchivePrune: prune,
	}, nil)
	if err != nil {
		t.Fatalf("failed to build archiver: %v", err)
	}
	return archiver
}

func seedFinishedJob(t *testing.T, id string, ageDays int) {
	t.Helper()

	finished := time.Now().AddDate(0, 0, -ageDays)
	started := finished.Add(-45 * time.Second)
	job := &db.PrintJob{
		ID:          id,
		SourceRef:   "strips/" + id + ".jpg",
		PrinterName: "Booth-Printer",
		State:       "completed",
		Attempts:    1,
		SubmittedAt: finished.Add(-time.Minute),
		StartedAt:   &started,
		FinishedAt:  &finished,
	}
	if err := db.Jobs.UpsertJob(context.Background(), job); err != nil {
		t.Fatalf("failed to seed job %s: %v", id, err)
	}
}

func seedShare(t *testing.T, photoRef string, ageDays int) int64 {
	t.Helper()

	rec := &db.ShareRecord{
		PhotoRef:  photoRef,
		Phone:     "+15550001111",
		HostUsed:  "zeroxzero",
		ImageURL:  "https://0x0.st/abcd.jpg",
		SMSStatus: "sent",
	}
	if err := db.Shares.CreateShare(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed share record: %v", err)
	}
	backdate(t, "share_records", rec.ID, ageDays)
	return rec.ID
}

func seedEvent(t *testing.T, message string, ageDays int) int64 {
	t.Helper()

	event := &db.Event{Kind: "print_failed", JobID: "job-x", Message: message}
	if err := db.Events.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	backdate(t, "events", event.ID, ageDays)
	return event.ID
}

// backdate ages a row past the retention cutoff. Shares and events get
// their created_at from the database, so tests rewrite it afterwards.
func backdate(t *testing.T, table string, id int64, ageDays int) {
	t.Helper()

	query := fmt.Sprintf("UPDATE %s SET created_at = datetime('now', ?) WHERE id = ?", table)
	if _, err := db.GetDB().Exec(query, fmt.Sprintf("-%d days", ageDays), id); err != nil {
		t.Fatalf("failed to backdate %s row %d: %v", table, id, err)
	}
}

func TestNewArchiverDefaults(t *testing.T) {
	archiver, err := NewArchiver(config.DatabaseConfig{ArchivePath: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("failed to build archiver: %v", err)
	}
	if got := archiver.GetArchiveDays(); got != 30 {
		t.Errorf("GetArchiveDays() = %d, want 30", got)
	}
	if archiver.GetArchivePrune() {
		t.Error("GetArchivePrune() = true, want false by default")
	}
}

func TestLiveRetentionUpdates(t *testing.T) {
	archiver := newTestArchiver(t, 30, false)

	archiver.SetArchiveDays(7)
	if got := archiver.GetArchiveDays(); got != 7 {
		t.Errorf("GetArchiveDays() = %d, want 7", got)
	}

	archiver.SetArchiveDays(0)
	if got := archiver.GetArchiveDays(); got != 7 {
		t.Errorf("GetArchiveDays() after zero update = %d, want 7", got)
	}

	archiver.SetArchivePrune(true)
	if !archiver.GetArchivePrune() {
		t.Error("GetArchivePrune() = false after enabling prune")
	}
}

func TestRunArchiveSkipsWhenNothingIsOldEnough(t *testing.T) {
	archiver := newTestArchiver(t, 30, false)
	seedFinishedJob(t, "job-fresh-1", 0)

	run, err := archiver.RunArchive(context.Background())
	if err != nil {
		t.Fatalf("RunArchive failed: %v", err)
	}
	if run.Status != "skipped" {
		t.Errorf("run status = %q, want %q", run.Status, "skipped")
	}
	if run.ArchiveFile != "" {
		t.Errorf("skipped run named an archive file: %q", run.ArchiveFile)
	}

	archives, err := archiver.ListArchives()
	if err != nil {
		t.Fatalf("ListArchives failed: %v", err)
	}
	if len(archives) != 0 {
		t.Errorf("ListArchives() returned %d files, want 0", len(archives))
	}
}

func TestRunArchiveExportsOldRows(t *testing.T) {
	ctx := context.Background()
	archiver := newTestArchiver(t, 30, false)

	seedFinishedJob(t, "job-old-1", 40)
	seedFinishedJob(t, "job-old-2", 45)
	shareID := seedShare(t, "strips/old-share.jpg", 40)
	seedEvent(t, "printer reported a paper jam", 40)

	run, err := archiver.RunArchive(ctx)
	if err != nil {
		t.Fatalf("RunArchive failed: %v", err)
	}
	if run.Status != "completed" {
		t.Fatalf("run status = %q, want %q", run.Status, "completed")
	}
	if run.JobsArchived != 2 || run.SharesArchived != 1 || run.EventsArchived != 1 {
		t.Errorf("archived counts = %d/%d/%d, want 2/1/1",
			run.JobsArchived, run.SharesArchived, run.EventsArchived)
	}
	if run.FinishedAt == nil {
		t.Error("completed run has no finished_at")
	}

	wantFile := fmt.Sprintf("archive_%s.db", time.Now().Format("2006_01"))
	if run.ArchiveFile != wantFile {
		t.Errorf("archive file = %q, want %q", run.ArchiveFile, wantFile)
	}
	path := filepath.Join(archiver.cfg.ArchivePath, wantFile)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("archive file missing: %v", err)
	}

	// Without pruning the live tables keep their rows.
	if _, err := db.Jobs.GetJobByID(ctx, "job-old-1"); err != nil {
		t.Errorf("archived job vanished from live table: %v", err)
	}
	if n := countRows(t, db.GetDB(), "share_records", shareID); n != 1 {
		t.Errorf("live share record count = %d, want 1", n)
	}

	archiveDB, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open archive file: %v", err)
	}
	defer archiveDB.Close()

	var jobs, shares, events int
	if err := archiveDB.QueryRow("SELECT COUNT(*) FROM print_jobs").Scan(&jobs); err != nil {
		t.Fatalf("failed to count archived jobs: %v", err)
	}
	if err := archiveDB.QueryRow("SELECT COUNT(*) FROM share_records").Scan(&shares); err != nil {
		t.Fatalf("failed to count archived shares: %v", err)
	}
	if err := archiveDB.QueryRow("SELECT COUNT(*) FROM events").Scan(&events); err != nil {
		t.Fatalf("failed to count archived events: %v", err)
	}
	if jobs != 2 || shares != 1 || events != 1 {
		t.Errorf("archive file holds %d/%d/%d rows, want 2/1/1", jobs, shares, events)
	}

	runs, err := db.Archive.ListRuns(ctx, 5, 0)
	if err != nil {
		t.Fatalf("failed to list archive runs: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("completed run was not recorded")
	}
	if runs[0].ArchiveFile != wantFile || runs[0].Status != "completed" {
		t.Errorf("latest run = %q/%q, want %q/completed", runs[0].ArchiveFile, runs[0].Status, wantFile)
	}

	archives, err := archiver.ListArchives()
	if err != nil {
		t.Fatalf("ListArchives failed: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("ListArchives() returned %d files, want 1", len(archives))
	}
	if want := time.Now().Format("2006-01"); archives[0].Month != want {
		t.Errorf("archive month = %q, want %q", archives[0].Month, want)
	}
	if archives[0].Size == 0 {
		t.Error("archive file reported zero size")
	}
}

func TestRunArchivePrunesExportedRows(t *testing.T) {
	ctx := context.Background()
	archiver := newTestArchiver(t, 30, true)

	seedFinishedJob(t, "job-prune-1", 40)
	seedFinishedJob(t, "job-prune-keep", 0)
	shareID := seedShare(t, "strips/prune-share.jpg", 40)
	eventID := seedEvent(t, "cups connection refused", 40)

	run, err := archiver.RunArchive(ctx)
	if err != nil {
		t.Fatalf("RunArchive failed: %v", err)
	}
	if run.Status != "completed" {
		t.Fatalf("run status = %q, want %q", run.Status, "completed")
	}
	if run.Error != "" {
		t.Fatalf("prune reported an error: %s", run.Error)
	}

	if _, err := db.Jobs.GetJobByID(ctx, "job-prune-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("pruned job lookup error = %v, want sql.ErrNoRows", err)
	}
	if n := countRows(t, db.GetDB(), "share_records", shareID); n != 0 {
		t.Errorf("pruned share record still present")
	}
	if n := countRows(t, db.GetDB(), "events", eventID); n != 0 {
		t.Errorf("pruned event still present")
	}

	// Rows inside the retention window stay in the live tables.
	if _, err := db.Jobs.GetJobByID(ctx, "job-prune-keep"); err != nil {
		t.Errorf("recent job vanished during prune: %v", err)
	}

	// Everything eligible was just moved, so a second sweep has no work.
	again, err := archiver.RunArchive(ctx)
	if err != nil {
		t.Fatalf("second RunArchive failed: %v", err)
	}
	if again.Status != "skipped" {
		t.Errorf("second run status = %q, want %q", again.Status, "skipped")
	}
}

func countRows(t *testing.T, conn *sql.DB, table string, id int64) int {
	t.Helper()

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table)
	if err := conn.QueryRow(query, id).Scan(&n); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	return n
}
