// Package jobs runs periodic maintenance reports for the auth store.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
	"github.com/robfig/cron/v3"
)

const reportTimeout = 30 * time.Second

type StatsSource interface {
	SessionStats(ctx context.Context, now time.Time) (repo.SessionStats, error)
}

// SessionReport logs how many refresh sessions are live and how many expired
// without being revoked. It never deletes rows.
type SessionReport struct {
	Source StatsSource
	Now    func() time.Time
	Log    *slog.Logger
}

func (r *SessionReport) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if _, err := r.Report(ctx); err != nil {
		r.Log.Error("session_report_failed", "error", err)
	}
}

func (r *SessionReport) Report(ctx context.Context) (repo.SessionStats, error) {
	stats, err := r.Source.SessionStats(ctx, r.Now())
	if err != nil {
		return repo.SessionStats{}, err
	}
	r.Log.Info("session_report",
		"live", stats.Live,
		"expired_unrevoked", stats.ExpiredUnrevoked,
		"revoked", stats.Revoked,
	)
	return stats, nil
}

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func NewScheduler(log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		log:  log,
	}
}

func (s *Scheduler) Add(name, schedule string, job cron.Job) error {
	if _, err := s.cron.AddJob(schedule, job); err != nil {
		return err
	}
	s.log.Info("job_registered", "job", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs or for ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
