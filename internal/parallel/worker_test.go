package parallel_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/reprise/internal/parallel"
)

func TestNewWorkerPool(t *testing.T) {
	t.Run("explicit worker count", func(t *testing.T) {
		wp := parallel.NewWorkerPool(4)
		defer wp.Close()

		require.NotNil(t, wp)
	})

	t.Run("defaults to NumCPU for non-positive counts", func(t *testing.T) {
		wp := parallel.NewWorkerPool(0)
		defer wp.Close()

		results, err := parallel.ProcessIndexed(wp, []int{1, 2, 3}, func(_ int, v int) (int, error) {
			return v * 2, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4, 6}, results)
	})
}

func TestProcessIndexed(t *testing.T) {
	t.Run("preserves input order", func(t *testing.T) {
		wp := parallel.NewWorkerPool(8)
		defer wp.Close()

		items := make([]int, 100)
		for i := range items {
			items[i] = i
		}

		results, err := parallel.ProcessIndexed(wp, items, func(idx int, v int) (string, error) {
			return fmt.Sprintf("%d:%d", idx, v), nil
		})
		require.NoError(t, err)
		require.Len(t, results, 100)

		for i, r := range results {
			assert.Equal(t, fmt.Sprintf("%d:%d", i, i), r)
		}
	})

	t.Run("empty input returns nil", func(t *testing.T) {
		wp := parallel.NewWorkerPool(2)
		defer wp.Close()

		results, err := parallel.ProcessIndexed(wp, nil, func(_ int, v int) (int, error) {
			return v, nil
		})
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("runs every item exactly once", func(t *testing.T) {
		wp := parallel.NewWorkerPool(4)
		defer wp.Close()

		var calls int64
		items := make([]int, 50)
		_, err := parallel.ProcessIndexed(wp, items, func(_ int, v int) (int, error) {
			atomic.AddInt64(&calls, 1)
			return v, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(50), atomic.LoadInt64(&calls))
	})

	t.Run("returns first error in item order", func(t *testing.T) {
		wp := parallel.NewWorkerPool(4)
		defer wp.Close()

		errThird := errors.New("item 3 failed")
		errSeventh := errors.New("item 7 failed")

		results, err := parallel.ProcessIndexed(wp, []int{0, 1, 2, 3, 4, 5, 6, 7}, func(idx int, v int) (int, error) {
			switch idx {
			case 3:
				return 0, errThird
			case 7:
				return 0, errSeventh
			default:
				return v, nil
			}
		})
		require.Error(t, err)
		assert.Equal(t, errThird, err)
		assert.Nil(t, results)
	})

	t.Run("single worker processes sequentially", func(t *testing.T) {
		wp := parallel.NewWorkerPool(1)
		defer wp.Close()

		results, err := parallel.ProcessIndexed(wp, []int{5, 6, 7}, func(_ int, v int) (int, error) {
			return v + 1, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{6, 7, 8}, results)
	})
}
