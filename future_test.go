package retune

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_ResolvesOnce(t *testing.T) {
	f := newFuture[int]()

	_, err := f.Result()
	require.ErrorIs(t, err, ErrPending)

	f.resolve(42, nil)
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	assert.Panics(t, func() { f.resolve(7, nil) })

	v, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v, "second resolve must not overwrite the value")
}

func TestFuture_Error(t *testing.T) {
	boom := errors.New("boom")
	f := newFuture[string]()
	f.resolve("", boom)

	select {
	case <-f.Done():
	default:
		t.Fatal("Done not closed after resolve")
	}
	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFuture_WaitContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The future is still usable after an abandoned wait.
	go f.resolve(1, nil)
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_ManyWaiters(t *testing.T) {
	f := newFuture[int]()
	results := make(chan int, 8)
	for range 8 {
		go func() {
			v, _ := f.Wait(context.Background())
			results <- v
		}()
	}
	f.resolve(5, nil)
	for range 8 {
		assert.Equal(t, 5, <-results)
	}
}
