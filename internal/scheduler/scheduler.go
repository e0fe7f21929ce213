// Package scheduler runs the periodic housekeeping sweeps.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	TagAbsentSweep   = "absent-sweep"
	TagInviteExpiry  = "invite-expiry"
	TagSessionSweep  = "intake-session-sweep"
	inviteMaxAge     = 7 * 24 * time.Hour
	jobTimeout       = 2 * time.Minute
	sessionSweepMins = 5
)

// Jobs are the sweeps the scheduler drives. Nil entries are skipped.
type Jobs struct {
	MarkAbsent    func(ctx context.Context) (int64, error)
	ExpireInvites func(ctx context.Context, olderThan time.Duration) (int64, error)
	SweepSessions func() int
}

// Scheduler wraps a gocron scheduler bound to the plant's time zone.
type Scheduler struct {
	cron *gocron.Scheduler
	jobs Jobs
	log  zerolog.Logger
}

// New registers every configured job. Nothing runs until Start.
func New(loc *time.Location, jobs Jobs, log zerolog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{cron: gocron.NewScheduler(loc), jobs: jobs, log: log}
	s.cron.SingletonModeAll()

	if jobs.MarkAbsent != nil {
		if _, err := s.cron.Every(1).Day().At("00:30").Tag(TagAbsentSweep).Do(s.runAbsentSweep); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", TagAbsentSweep, err)
		}
	}
	if jobs.ExpireInvites != nil {
		if _, err := s.cron.Every(1).Day().At("01:00").Tag(TagInviteExpiry).Do(s.runInviteExpiry); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", TagInviteExpiry, err)
		}
	}
	if jobs.SweepSessions != nil {
		if _, err := s.cron.Every(sessionSweepMins).Minutes().Tag(TagSessionSweep).Do(s.runSessionSweep); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", TagSessionSweep, err)
		}
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.log.Info().Strs("jobs", s.Tags()).Msg("scheduler started")
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Tags lists the registered job tags.
func (s *Scheduler) Tags() []string {
	var tags []string
	for _, j := range s.cron.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	return tags
}

func (s *Scheduler) runAbsentSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.jobs.MarkAbsent(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("job", TagAbsentSweep).Msg("sweep failed")
		return
	}
	s.log.Info().Str("job", TagAbsentSweep).Int64("affected", n).Msg("sweep done")
}

func (s *Scheduler) runInviteExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.jobs.ExpireInvites(ctx, inviteMaxAge)
	if err != nil {
		s.log.Error().Err(err).Str("job", TagInviteExpiry).Msg("sweep failed")
		return
	}
	s.log.Info().Str("job", TagInviteExpiry).Int64("affected", n).Msg("sweep done")
}

func (s *Scheduler) runSessionSweep() {
	if n := s.jobs.SweepSessions(); n > 0 {
		s.log.Debug().Str("job", TagSessionSweep).Int("expired", n).Msg("sweep done")
	}
}
