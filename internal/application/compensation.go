package application

import (
	"context"
	"log"
	"time"
)

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// compensations records undo steps of a multi-product operation. rollback
// runs them newest first; a failing step is logged and the rest still run.
type compensations struct {
	steps   []compensation
	timeout time.Duration
}

func newCompensations(timeout time.Duration) *compensations {
	return &compensations{timeout: timeout}
}

func (c *compensations) add(name string, undo func(ctx context.Context) error) {
	c.steps = append(c.steps, compensation{name: name, undo: undo})
}

func (c *compensations) rollback(ctx context.Context) []error {
	var failed []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		stepCtx, cancel := detached(ctx, c.timeout)
		if err := step.undo(stepCtx); err != nil {
			log.Printf("Compensation: %s failed: %v", step.name, err)
			failed = append(failed, err)
		}
		cancel()
	}
	c.steps = nil
	return failed
}
