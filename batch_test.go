package bdispatch_test

import (
	"context"
	"sync"
	"testing"

	"github.com/advdv/bdispatch"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEach(t *testing.T) {
	rc := newRequestContext(bdispatch.MimeJSON)

	_, ok := rc.AutoBatchIndex()
	require.False(t, ok)

	var seen []int
	require.NoError(t, bdispatch.ForEach(t.Context(), rc, []string{"a", "b", "c"},
		func(_ context.Context, erc *bdispatch.RequestContext, i int, _ string) error {
			require.Same(t, rc, erc)

			idx, ok := erc.AutoBatchIndex()
			require.True(t, ok)
			require.Equal(t, i, idx)
			seen = append(seen, idx)

			return nil
		}))

	require.Equal(t, []int{0, 1, 2}, seen)

	idx, ok := rc.AutoBatchIndex()
	require.True(t, ok)
	require.Equal(t, 2, idx)
}

func TestForEachStopsAtError(t *testing.T) {
	rc := newRequestContext(bdispatch.MimeJSON)

	var calls int
	err := bdispatch.ForEach(t.Context(), rc, []int{1, 2, 3},
		func(_ context.Context, _ *bdispatch.RequestContext, i int, _ int) error {
			calls++
			if i == 1 {
				return errors.New("element failed")
			}

			return nil
		})

	require.EqualError(t, err, "batch element 1: element failed")
	require.Equal(t, 2, calls)
}

func TestForEachConcurrent(t *testing.T) {
	rc := newRequestContext(bdispatch.MimeJSON)
	rc.SetItem("shared", "yes")

	var mu sync.Mutex
	seen := map[int]int{}

	require.NoError(t, bdispatch.ForEachConcurrent(t.Context(), rc, make([]struct{}, 10), 4,
		func(_ context.Context, erc *bdispatch.RequestContext, i int, _ struct{}) error {
			idx, ok := erc.AutoBatchIndex()
			assert.True(t, ok)

			v, _ := erc.Item("shared")
			assert.Equal(t, "yes", v)
			erc.SetItem("shared", "changed")

			mu.Lock()
			seen[i] = idx
			mu.Unlock()

			return nil
		}))

	require.Len(t, seen, 10)
	for i, idx := range seen {
		require.Equal(t, i, idx)
	}

	idx, _ := rc.AutoBatchIndex()
	require.Equal(t, 9, idx)

	v, _ := rc.Item("shared")
	require.Equal(t, "yes", v)
}
