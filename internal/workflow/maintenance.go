package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sweep runs one pass of both maintenance sweeps: pending gates past
// their expiry become expired (halting their workflows), and executions
// past the command timeout become timed out. Returns how many gates and
// executions were swept.
func (o *Orchestrator) Sweep(ctx context.Context) (int, int, error) {
	expiredGates, err := o.sweepGates(ctx)
	if err != nil {
		return 0, 0, err
	}
	// Execution timeouts feed back through the tracker's event callback.
	timedOut, err := o.tracker.SweepTimeouts()
	return expiredGates, timedOut, err
}

func (o *Orchestrator) sweepGates(ctx context.Context) (int, error) {
	expired, err := o.gates.ExpireStale(o.cfg.Gates.Expiry())
	if err != nil {
		return 0, err
	}
	for i := range expired {
		g := &expired[i]
		l := o.projectLock(g.ProjectID)
		l.Lock()
		out, err := o.applyGateOutcome(ctx, g)
		l.Unlock()
		if err != nil {
			o.log.Error("apply gate expiry", zap.String("gate_id", g.ID), zap.Error(err))
			continue
		}
		o.listener(Update{ProjectID: g.ProjectID, Text: out.Reply, Phase: out.Phase, Gate: g})
	}
	return len(expired), nil
}

// RunMaintenance sweeps gates and executions on an interval until ctx is
// cancelled. Meant to run alongside a long-lived transport.
func (o *Orchestrator) RunMaintenance(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return o.sweepLoop(ctx, interval, "gates", func(ctx context.Context) error {
			_, err := o.sweepGates(ctx)
			return err
		})
	})
	g.Go(func() error {
		return o.sweepLoop(ctx, interval, "executions", func(context.Context) error {
			_, err := o.tracker.SweepTimeouts()
			return err
		})
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (o *Orchestrator) sweepLoop(ctx context.Context, interval time.Duration, name string, sweep func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				o.log.Error("maintenance sweep", zap.String("sweep", name), zap.Error(err))
			}
		}
	}
}
