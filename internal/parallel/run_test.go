package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got, err := Run(context.Background(), items, 3, func(_ context.Context, v int) (int, error) {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{25, 1, 16, 4, 9}, got)
}

func TestRunEmptyItems(t *testing.T) {
	_, err := Run(context.Background(), []string{}, 2, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	assert.True(t, errors.Is(err, ErrNoItems))
}

func TestRunErrorAfterAllWorkers(t *testing.T) {
	boom := errors.New("boom")
	var done int32
	got, err := Run(context.Background(), []int{0, 1, 2, 3}, 2, func(_ context.Context, v int) (int, error) {
		defer atomic.AddInt32(&done, 1)
		if v == 1 {
			return 0, boom
		}
		return v, nil
	})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, int32(4), atomic.LoadInt32(&done), "every item runs before the error is reported")
	assert.Equal(t, []int{0, 0, 2, 3}, got)
}

func TestRunRecoversPanics(t *testing.T) {
	_, err := Run(context.Background(), []int{1}, 0, func(_ context.Context, v int) (int, error) {
		panic("bad item")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad item")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, []int{1, 2, 3}, 1, func(ctx context.Context, v int) (int, error) {
		return v, nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
}
