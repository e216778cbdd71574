// Package sideeffect models best-effort external actions (CRM writes, email
// sends) whose failure is reported to the caller as data instead of an error.
package sideeffect

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one best-effort attempt. Delivered is false
// whenever Err is set.
type Outcome struct {
	Name      string
	Delivered bool
	Err       error
	Duration  time.Duration
}

// Failed builds an Outcome for an attempt that could not run at all.
func Failed(name string, err error) Outcome {
	return Outcome{Name: name, Err: err}
}

// Effect is a side effect that already guards itself and reports an Outcome.
type Effect func(ctx context.Context) Outcome

// Attempt runs fn exactly once. Errors and panics become an undelivered
// Outcome; a positive timeout bounds the call.
func Attempt(ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) (out Outcome) {
	start := time.Now()
	out.Name = name
	defer func() {
		if r := recover(); r != nil {
			out.Delivered = false
			out.Err = fmt.Errorf("sideeffect: %s panicked: %v", name, r)
		}
		out.Duration = time.Since(start)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		out.Err = err
		return out
	}
	out.Delivered = true
	return out
}

// Gather runs every effect concurrently and waits for all of them. One
// effect's failure never cancels another. Outcomes keep the order of effects.
func Gather(ctx context.Context, effects ...Effect) []Outcome {
	outcomes := make([]Outcome, len(effects))
	var g errgroup.Group
	for i, effect := range effects {
		g.Go(func() error {
			outcomes[i] = guard(ctx, i, effect)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func guard(ctx context.Context, index int, effect Effect) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Failed(fmt.Sprintf("effect-%d", index), fmt.Errorf("sideeffect: effect panicked: %v", r))
		}
	}()
	if effect == nil {
		return Failed(fmt.Sprintf("effect-%d", index), fmt.Errorf("sideeffect: nil effect"))
	}
	return effect(ctx)
}
