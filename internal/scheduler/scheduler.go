// Package scheduler runs the periodic overdue sweep and payment reminders.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/credit-dashboard/internal/utils"
)

// LoanJobs is the part of the loan service the scheduler drives
type LoanJobs interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
	SendReminders(ctx context.Context, asOf time.Time, horizon time.Duration) (int, error)
}

// Scheduler wraps a cron runner
type Scheduler struct {
	cron    *cron.Cron
	jobs    LoanJobs
	clock   utils.Clock
	horizon time.Duration
	log     *logrus.Logger
}

// New creates a scheduler that reminds about installments due within
// horizon. Call Start to begin running.
func New(jobs LoanJobs, clock utils.Clock, horizon time.Duration, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    jobs,
		clock:   clock,
		horizon: horizon,
		log:     log,
	}
}

// Schedule registers the sweep under a standard five-field cron spec
func (s *Scheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	s.log.Infof("Payment reminders scheduled: %s", spec)
	return nil
}

// RunOnce marks overdue installments and then sends reminders
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now()
	marked, err := s.jobs.MarkOverdue(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("Overdue sweep failed")
		return
	}
	sent, err := s.jobs.SendReminders(ctx, now, s.horizon)
	if err != nil {
		s.log.WithError(err).Error("Sending reminders failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"overdue":   marked,
		"reminders": sent,
	}).Info("Loan sweep finished")
}

// Start runs the cron scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
