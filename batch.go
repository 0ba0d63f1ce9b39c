package bdispatch

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// ElementFunc processes one element of a batch.
type ElementFunc[T any] func(ctx context.Context, rc *RequestContext, i int, elem T) error

// ForEach processes the elements in order. Before each element the ordinal is recorded on rc, so filters and
// handlers observe it through [RequestContext.AutoBatchIndex]. The ordinal of the last processed element stays
// visible afterwards. Processing stops at the first error.
func ForEach[T any](ctx context.Context, rc *RequestContext, elems []T, fn ElementFunc[T]) error {
	for i, elem := range elems {
		rc.setAutoBatchIndex(i)

		if err := fn(ctx, rc, i, elem); err != nil {
			return errors.Wrapf(err, "batch element %d", i)
		}
	}

	return nil
}

// ForEachConcurrent processes up to limit elements at the same time. Every element gets its own copy of rc that
// carries its ordinal. Once all elements finished, rc carries the ordinal of the last element like [ForEach].
func ForEachConcurrent[T any](ctx context.Context, rc *RequestContext, elems []T, limit int, fn ElementFunc[T],
) error {
	if limit <= 1 {
		return ForEach(ctx, rc, elems, fn)
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(limit)

	for i, elem := range elems {
		erc := rc.Clone()
		erc.setAutoBatchIndex(i)

		grp.Go(func() error {
			if err := fn(gctx, erc, i, elem); err != nil {
				return errors.Wrapf(err, "batch element %d", i)
			}

			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return err
	}

	if len(elems) > 0 {
		rc.setAutoBatchIndex(len(elems) - 1)
	}

	return nil
}
