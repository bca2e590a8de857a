package shutdownqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	q.mu.Lock()
	q.tasks = nil
	q.closed = false
	q.mu.Unlock()
}

func TestShutdown_RunsLIFO(t *testing.T) {
	reset()

	var order []string

	AddNamed("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	AddNamed("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, Shutdown(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestShutdown_Idempotent(t *testing.T) {
	reset()

	calls := 0
	Add(func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, Shutdown(context.Background()))
	require.NoError(t, Shutdown(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestShutdown_CollectsErrorsAndRecoversPanics(t *testing.T) {
	reset()

	wantErr := errors.New("drain failed")

	AddNamed("queue", func(context.Context) error { return wantErr })
	AddNamed("boom", func(context.Context) error { panic("boom") })

	err := Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Contains(t, err.Error(), "boom")
}

func TestShutdown_StopsOnCanceledContext(t *testing.T) {
	reset()

	ran := false
	Add(func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := Shutdown(ctx)
	require.Error(t, err)
	assert.False(t, ran)
}

func TestAdd_AfterShutdownIsNoop(t *testing.T) {
	reset()

	require.NoError(t, Shutdown(context.Background()))

	ran := false
	Add(func(context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, Shutdown(context.Background()))
	assert.False(t, ran)
}
