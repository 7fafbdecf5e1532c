// Package refresh re-reads baseline event feeds on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	appLog "agendacal/internal/log"
	"agendacal/internal/metrics"
)

// Refresher is anything that reloads its content on demand.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs a Refresher once at start and then on every tick of a cron
// schedule. Overlapping ticks are skipped.
type Scheduler struct {
	schedule string
	target   Refresher
	cron     *cron.Cron
	metrics  *metrics.Metrics

	stopOnce sync.Once
	stopped  chan struct{}
}

// New validates the schedule (five fields or a descriptor such as "@hourly").
func New(schedule string, target Refresher) (*Scheduler, error) {
	schedule = strings.TrimSpace(schedule)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("refresh: bad schedule %q: %w", schedule, err)
	}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Scheduler{
		schedule: schedule,
		target:   target,
		cron:     c,
		stopped:  make(chan struct{}),
	}, nil
}

// WithMetrics records every run on m.
func (s *Scheduler) WithMetrics(m *metrics.Metrics) *Scheduler {
	s.metrics = m
	return s
}

// Start runs the first refresh synchronously, registers the periodic job
// and returns. The scheduler stops when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.run(ctx)

	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	appLog.Info("refresh scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		close(s.stopped)
		appLog.Info("refresh scheduler stopped")
	})
}

// Done is closed once Stop has completed.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := s.target.Refresh(ctx)
	s.metrics.FeedRefresh(err)
	if err != nil {
		// Partial failures keep serving the previous content.
		appLog.Error("baseline refresh failed", err)
	}
}
