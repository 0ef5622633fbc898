package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Policy
		wantErr bool
	}{
		{raw: "abort", want: PolicyAbort},
		{raw: " Skip ", want: PolicySkip},
		{raw: "continue", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePolicy(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapPreservesInputOrder(t *testing.T) {
	t.Parallel()

	items := []int{5, 4, 3, 2, 1, 0}
	results, err := Map(context.Background(), items, Options{Limit: 3, Policy: PolicyAbort},
		func(_ context.Context, n int) (string, error) {
			// Later items finish first.
			time.Sleep(time.Duration(n) * 5 * time.Millisecond)
			return fmt.Sprintf("item-%d", n), nil
		})
	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, n := range items {
		assert.Equal(t, fmt.Sprintf("item-%d", n), results[i].Value)
		assert.NoError(t, results[i].Err)
	}
}

func TestMapRespectsLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	items := make([]int, 20)
	_, err := Map(context.Background(), items, Options{Limit: 2, Policy: PolicySkip},
		func(_ context.Context, _ int) (struct{}, error) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return struct{}{}, nil
		})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMapZeroLimitRunsSerially(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	_, err := Map(context.Background(), []int{1, 2, 3}, Options{Policy: PolicyAbort},
		func(_ context.Context, _ int) (int, error) {
			cur := inFlight.Add(1)
			if cur > peak.Load() {
				peak.Store(cur)
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			return 0, nil
		})
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}

func TestMapAbortReturnsFirstError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}
	_, err := Map(context.Background(), items, Options{Limit: 1, Policy: PolicyAbort},
		func(ctx context.Context, n int) (int, error) {
			calls.Add(1)
			if n == 2 {
				return 0, boom
			}
			return n, ctx.Err()
		})
	require.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int32(len(items)))
}

func TestMapAbortMarksUnstartedItems(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	items := []int{0, 1, 2, 3}
	results, err := Map(context.Background(), items, Options{Limit: 1, Policy: PolicyAbort},
		func(_ context.Context, n int) (int, error) {
			calls.Add(1)
			if n == 1 {
				return 0, boom
			}
			return n * 10, nil
		})
	require.ErrorIs(t, err, boom)
	require.Len(t, results, 4)
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, results[0].Done)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 0, results[0].Value)
	assert.True(t, results[1].Done)
	assert.ErrorIs(t, results[1].Err, boom)
	for _, r := range results[2:] {
		assert.False(t, r.Done)
	}
}

func TestMapSkipCollectsErrors(t *testing.T) {
	t.Parallel()

	items := []int{0, 1, 2, 3}
	results, err := Map(context.Background(), items, Options{Limit: 4, Policy: PolicySkip},
		func(_ context.Context, n int) (int, error) {
			if n%2 == 1 {
				return 0, fmt.Errorf("odd %d", n)
			}
			return n * 10, nil
		})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 0, results[0].Value)
	assert.EqualError(t, results[1].Err, "odd 1")
	assert.Equal(t, 20, results[2].Value)
	assert.EqualError(t, results[3].Err, "odd 3")
}

func TestMapCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, policy := range []Policy{PolicyAbort, PolicySkip} {
		_, err := Map(ctx, []int{1, 2}, Options{Limit: 1, Policy: policy},
			func(ctx context.Context, n int) (int, error) {
				return n, ctx.Err()
			})
		require.ErrorIs(t, err, context.Canceled, "policy %s", policy)
	}
}
