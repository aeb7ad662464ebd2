package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"STTIngest/internal/ports"
)

// CronScheduler runs a job on the instants of a cron expression.
type CronScheduler struct {
	expr       *cronexpr.Expression
	runOnStart bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler parses spec. Seven field expressions carry a seconds field.
// When runOnStart is set the job also fires once as soon as Start is called.
func NewCronScheduler(spec string, runOnStart bool) (*CronScheduler, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return &CronScheduler{expr: expr, runOnStart: runOnStart}, nil
}

// Next reports the first fire time strictly after from, or zero when the
// expression never fires again.
func (c *CronScheduler) Next(from time.Time) time.Time {
	return c.expr.Next(from)
}

// Start launches the firing loop. Calling Start on a running scheduler is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done

	go func() {
		defer close(done)
		if c.runOnStart {
			job(time.Now())
		}
		for {
			next := c.expr.Next(time.Now())
			if next.IsZero() {
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the loop and waits for a running job to return, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
