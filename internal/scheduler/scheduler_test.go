package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRegistersConfiguredJobs(t *testing.T) {
	s, err := New(time.UTC, Jobs{
		MarkAbsent:    func(context.Context) (int64, error) { return 0, nil },
		SweepSessions: func() int { return 0 },
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	tags := s.Tags()
	sort.Strings(tags)
	if len(tags) != 2 || tags[0] != TagAbsentSweep || tags[1] != TagSessionSweep {
		t.Fatalf("unexpected jobs %v", tags)
	}
}

func TestJobsCallThrough(t *testing.T) {
	var gotAge time.Duration
	absentCalls, sweepCalls := 0, 0
	s, err := New(nil, Jobs{
		MarkAbsent: func(ctx context.Context) (int64, error) {
			absentCalls++
			if _, ok := ctx.Deadline(); !ok {
				t.Error("sweep context should carry a deadline")
			}
			return 3, nil
		},
		ExpireInvites: func(_ context.Context, olderThan time.Duration) (int64, error) {
			gotAge = olderThan
			return 0, errors.New("db down")
		},
		SweepSessions: func() int { sweepCalls++; return 1 },
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	s.runAbsentSweep()
	s.runInviteExpiry()
	s.runSessionSweep()

	if absentCalls != 1 || sweepCalls != 1 {
		t.Fatalf("absent=%d sweep=%d", absentCalls, sweepCalls)
	}
	if gotAge != 7*24*time.Hour {
		t.Fatalf("invite expiry should use a 7 day window, got %v", gotAge)
	}
}
