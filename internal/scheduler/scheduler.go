// Package scheduler runs the catalog mirror sync on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wesm/catalogview/internal/config"
	"github.com/wesm/catalogview/internal/store"
)

// SyncFunc runs one mirror sync.
type SyncFunc func(ctx context.Context) error

// History reports the mirror's recorded sync runs. *store.Store
// implements it.
type History interface {
	LastSync() (*store.SyncRun, error)
}

// Status describes the mirror sync schedule and its most recent run.
type Status struct {
	Scheduled bool      `json:"scheduled"`
	Schedule  string    `json:"schedule,omitempty"`
	Running   bool      `json:"running"`
	NextRun   time.Time `json:"next_run,omitempty"`

	LastSyncID int64     `json:"last_sync_id,omitempty"`
	LastStatus string    `json:"last_status,omitempty"`
	LastRun    time.Time `json:"last_run,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

var (
	ErrNotScheduled   = errors.New("mirror sync is not scheduled")
	ErrAlreadyRunning = errors.New("mirror sync already running")
	ErrStopped        = errors.New("scheduler is stopped")
)

// Scheduler triggers the mirror sync from cron or on demand. At most
// one sync runs at a time.
type Scheduler struct {
	cron    *cron.Cron
	syncFn  SyncFunc
	history History
	logger  *slog.Logger

	mu       sync.Mutex
	entry    cron.EntryID
	schedule string
	running  bool
	// lastErr and lastDone describe the last run started here. They are
	// only reported when no History is set.
	lastErr  error
	lastDone time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// New creates a Scheduler that calls syncFn for each run.
func New(syncFn SyncFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(newParser())),
		syncFn: syncFn,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithLogger sets the logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithHistory makes Status report the last run from h.
func (s *Scheduler) WithHistory(h History) *Scheduler {
	s.history = h
	return s
}

// SetSchedule schedules the sync on cronExpr, replacing any previous
// schedule.
func (s *Scheduler) SetSchedule(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(cronExpr, func() {
		if s.tryStart() == nil {
			s.run()
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	if s.schedule != "" {
		s.cron.Remove(s.entry)
	}
	s.entry, s.schedule = id, cronExpr
	s.logger.Info("scheduled mirror sync", "schedule", cronExpr, "next_run", s.cron.Entry(id).Next)
	return nil
}

// ScheduleFromConfig applies [sync] schedule. It reports whether a
// schedule was set.
func (s *Scheduler) ScheduleFromConfig(cfg *config.Config) (bool, error) {
	if cfg.Sync.Schedule == "" {
		return false, nil
	}
	if err := s.SetSchedule(cfg.Sync.Schedule); err != nil {
		return false, fmt.Errorf("[sync] schedule: %w", err)
	}
	return true, nil
}

// IsScheduled reports whether a schedule is set.
func (s *Scheduler) IsScheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule != ""
}

// Start begins running the schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started")
}

// IsRunning reports whether the scheduler was started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Stop stops the schedule and cancels a running sync. The returned
// context is done once the sync has returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// TriggerSync starts a sync now, outside the schedule.
func (s *Scheduler) TriggerSync() error {
	if err := s.tryStart(); err != nil {
		return err
	}
	go s.run()
	return nil
}

// tryStart claims the running flag. On success the caller must call run.
func (s *Scheduler) tryStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped:
		return ErrStopped
	case s.schedule == "":
		return ErrNotScheduled
	case s.running:
		return ErrAlreadyRunning
	}
	s.running = true
	s.wg.Add(1)
	return nil
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.logger.Info("starting mirror sync")
	start := time.Now()
	err := s.syncFn(s.ctx)

	s.mu.Lock()
	s.running = false
	s.lastErr = err
	s.lastDone = time.Now()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("mirror sync failed", "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Info("mirror sync completed", "duration", time.Since(start))
}

// Status returns the schedule state. With a History the last run comes
// from the mirror's sync records, which also include syncs started
// outside the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		Scheduled: s.schedule != "",
		Schedule:  s.schedule,
		Running:   s.running,
	}
	if st.Scheduled {
		st.NextRun = s.cron.Entry(s.entry).Next
	}
	lastErr, lastDone := s.lastErr, s.lastDone
	s.mu.Unlock()

	if s.history != nil {
		run, err := s.history.LastSync()
		if err == nil {
			if run != nil {
				st.LastSyncID = run.ID
				st.LastStatus = run.Status
				st.LastRun = run.StartedAt
				if run.CompletedAt.Valid {
					st.LastRun = run.CompletedAt.Time
				}
				st.LastError = run.ErrorMessage.String
			}
			return st
		}
		s.logger.Warn("read sync history", "error", err)
	}

	if !lastDone.IsZero() {
		st.LastRun = lastDone
		st.LastStatus = "completed"
		if lastErr != nil {
			st.LastStatus = "failed"
			st.LastError = lastErr.Error()
		}
	}
	return st
}

// ValidateCronExpr checks a cron expression without scheduling it.
func ValidateCronExpr(expr string) error {
	if _, err := newParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
