// Package bulk applies one operation to many independent records and reports
// the outcome per record.
package bulk

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var operationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bulk_operations_total",
		Help: "Records processed by bulk operations, by outcome",
	},
	[]string{"operation", "result"},
)

func init() {
	prometheus.MustRegister(operationsTotal)
}

// Result is the outcome for a single item.
type Result[T any] struct {
	Item T
	Err  error
}

// Report holds per-item results in input order.
type Report[T any] struct {
	Results   []Result[T]
	Succeeded int
	Failed    int
}

// Failures returns only the failed results.
func (r Report[T]) Failures() []Result[T] {
	var out []Result[T]
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Run calls fn for every item with at most limit calls in flight. A failing
// item never stops the others. Items not yet started when ctx is cancelled
// are reported with ctx.Err().
func Run[T any](ctx context.Context, operation string, items []T, limit int, fn func(context.Context, T) error) Report[T] {
	if limit <= 0 {
		limit = 1
	}
	results := make([]Result[T], len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		results[i].Item = item
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			results[i].Err = fn(ctx, item)
			return nil
		})
	}
	g.Wait()

	report := Report[T]{Results: results}
	for _, res := range results {
		if res.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	operationsTotal.WithLabelValues(operation, "success").Add(float64(report.Succeeded))
	operationsTotal.WithLabelValues(operation, "failure").Add(float64(report.Failed))
	return report
}
