package bulk

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunCountsPerItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	report := Run(context.Background(), "test", items, 2, func(ctx context.Context, n int) error {
		if n%2 == 0 {
			return errors.New("even")
		}
		return nil
	})
	if report.Succeeded != 3 || report.Failed != 2 {
		t.Fatalf("got succeeded=%d failed=%d, want 3/2", report.Succeeded, report.Failed)
	}
	for i, res := range report.Results {
		if res.Item != items[i] {
			t.Fatalf("result %d item=%d, want input order", i, res.Item)
		}
	}
	if len(report.Failures()) != 2 {
		t.Fatalf("Failures()=%d, want 2", len(report.Failures()))
	}
}

func TestRunRespectsLimit(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 20)
	Run(context.Background(), "test", items, 3, func(ctx context.Context, _ int) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	if peak > 3 {
		t.Fatalf("peak concurrency %d exceeds limit 3", peak)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	report := Run(ctx, "test", []string{"a", "b"}, 1, func(ctx context.Context, _ string) error {
		called = true
		return nil
	})
	if called {
		t.Fatal("fn should not run on a cancelled context")
	}
	if report.Failed != 2 {
		t.Fatalf("Failed=%d, want 2", report.Failed)
	}
	if !errors.Is(report.Results[0].Err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", report.Results[0].Err)
	}
}
