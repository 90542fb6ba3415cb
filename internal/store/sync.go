package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncRun represents a mirror sync in progress or completed.
type SyncRun struct {
	ID             int64
	StartedAt      time.Time
	CompletedAt    sql.NullTime
	Status         string // "running", "completed", "failed"
	Orders         int64
	Portfolios     int64
	PortfolioItems int64
	Platforms      int64
	ErrorMessage   sql.NullString
}

// SyncCounts is the number of records a sync mirrored.
type SyncCounts struct {
	Orders         int
	Portfolios     int
	PortfolioItems int
	Platforms      int
}

// Counts returns the counts of s.
func (s Snapshot) Counts() SyncCounts {
	return SyncCounts{
		Orders:         len(s.Orders),
		Portfolios:     len(s.Portfolios),
		PortfolioItems: len(s.PortfolioItems),
		Platforms:      len(s.Platforms),
	}
}

func now() string { return formatTime(time.Now()) }

// StartSync creates a new sync run record and returns its ID. Runs left
// running by an earlier process are marked failed.
func (s *Store) StartSync() (int64, error) {
	_, err := s.db.Exec(`
		UPDATE sync_runs
		SET status = 'failed',
		    error_message = 'superseded by new sync',
		    completed_at = ?
		WHERE status = 'running'
	`, now())
	if err != nil {
		return 0, fmt.Errorf("mark old syncs failed: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO sync_runs (started_at, status) VALUES (?, 'running')
	`, now())
	if err != nil {
		return 0, fmt.Errorf("insert sync_run: %w", err)
	}
	return result.LastInsertId()
}

// CompleteSync marks a sync as successfully completed.
func (s *Store) CompleteSync(syncID int64, c SyncCounts) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs
		SET status = 'completed',
		    completed_at = ?,
		    orders = ?, portfolios = ?, portfolio_items = ?, platforms = ?
		WHERE id = ?
	`, now(), c.Orders, c.Portfolios, c.PortfolioItems, c.Platforms, syncID)
	return err
}

// FailSync marks a sync as failed with an error message.
func (s *Store) FailSync(syncID int64, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs
		SET status = 'failed',
		    completed_at = ?,
		    error_message = ?
		WHERE id = ?
	`, now(), errMsg, syncID)
	return err
}

// LastSync returns the most recent sync run, or nil if there is none.
func (s *Store) LastSync() (*SyncRun, error) {
	return s.scanSyncRun(`
		SELECT id, started_at, completed_at, status,
		       orders, portfolios, portfolio_items, platforms, error_message
		FROM sync_runs
		ORDER BY id DESC
		LIMIT 1
	`)
}

// LastSuccessfulSync returns the most recent completed sync, or nil.
func (s *Store) LastSuccessfulSync() (*SyncRun, error) {
	return s.scanSyncRun(`
		SELECT id, started_at, completed_at, status,
		       orders, portfolios, portfolio_items, platforms, error_message
		FROM sync_runs
		WHERE status = 'completed'
		ORDER BY id DESC
		LIMIT 1
	`)
}

func (s *Store) scanSyncRun(query string) (*SyncRun, error) {
	var (
		run         SyncRun
		startedAt   string
		completedAt sql.NullString
	)
	err := s.db.QueryRow(query).Scan(
		&run.ID, &startedAt, &completedAt, &run.Status,
		&run.Orders, &run.Portfolios, &run.PortfolioItems, &run.Platforms,
		&run.ErrorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.StartedAt = parseTime(startedAt)
	if completedAt.Valid {
		run.CompletedAt = sql.NullTime{Time: parseTime(completedAt.String), Valid: true}
	}
	return &run, nil
}
