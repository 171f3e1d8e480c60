package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"SegmentCompass/internal/ports"
)

// SweepReport summarizes one pass over all customers.
type SweepReport struct {
	Customers   int
	Evaluated   int
	Transitions int
	Failures    int
}

// Sweeper recomputes every customer that has purchase history.
type Sweeper struct {
	events      ports.EventSource
	recomputer  *Recomputer
	concurrency int
	logger      *slog.Logger
}

// NewSweeper wires the batch reassignment job; concurrency <= 0 means 4.
func NewSweeper(events ports.EventSource, recomputer *Recomputer, concurrency int, logger *slog.Logger) *Sweeper {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{events: events, recomputer: recomputer, concurrency: concurrency, logger: logger}
}

// RecomputeAll runs Recompute for every customer, in parallel across customers.
// One failing customer does not stop the others; failures are joined into the error.
func (s *Sweeper) RecomputeAll(ctx context.Context) (SweepReport, error) {
	if s.events == nil || s.recomputer == nil {
		return SweepReport{}, fmt.Errorf("sweeper is not configured")
	}

	ids, err := s.events.CustomersWithPurchases(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list customers: %w", err)
	}

	var (
		mu     sync.Mutex
		report = SweepReport{Customers: len(ids)}
		errs   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			out, err := s.recomputer.Recompute(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures++
				errs = append(errs, fmt.Errorf("customer %s: %w", id, err))
				return nil
			}
			if out.Evaluated {
				report.Evaluated++
			}
			if out.Transition != nil {
				report.Transitions++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	s.logger.Info("sweep finished", "customers", report.Customers,
		"evaluated", report.Evaluated, "transitions", report.Transitions, "failures", report.Failures)

	return report, errors.Join(errs...)
}
