// Package batch runs a function over a slice with bounded concurrency while
// keeping results in input order.
package batch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Policy decides what a failing item does to the rest of the batch.
type Policy string

// Supported failure policies.
const (
	// PolicyAbort cancels outstanding work and returns the first error.
	PolicyAbort Policy = "abort"
	// PolicySkip records the error on the item and keeps going.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case PolicyAbort, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (want abort or skip)", raw)
	}
}

// Options controls a Map call.
type Options struct {
	// Limit is the maximum number of items in flight. Values below 1 mean 1.
	Limit  int
	Policy Policy
}

// Result holds the outcome of one item. Done is false for items that were
// never started because the batch aborted first.
type Result[T any] struct {
	Value T
	Err   error
	Done  bool
}

// Map calls fn for every item with at most opts.Limit calls running at once.
// results[i] always corresponds to items[i].
//
// Under PolicyAbort the first error cancels the context passed to the other
// calls, no further items are started, and the error is returned. Under
// PolicySkip every item runs and failures are only reported through
// Result.Err; the returned error is non-nil only if ctx itself ended.
func Map[In, Out any](
	ctx context.Context,
	items []In,
	opts Options,
	fn func(context.Context, In) (Out, error),
) ([]Result[Out], error) {
	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	results := make([]Result[Out], len(items))

	if opts.Policy == PolicySkip {
		var g errgroup.Group
		g.SetLimit(limit)
		for i, item := range items {
			g.Go(func() error {
				v, err := fn(ctx, item)
				results[i] = Result[Out]{Value: v, Err: err, Done: true}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("batch canceled: %w", err)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// g.Go may have waited for a slot while another item failed.
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, item)
			results[i] = Result[Out]{Value: v, Err: err, Done: true}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch canceled: %w", err)
	}
	return results, nil
}
