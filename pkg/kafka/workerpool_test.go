package kafka

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryJob(t *testing.T) {
	p := NewPool(context.Background(), 4, 8, zerolog.Nop())
	require.Equal(t, 4, p.Workers())
	require.Equal(t, 8, p.Capacity())

	var done atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
			done.Add(1)
			return nil
		}))
	}
	p.Shutdown()

	require.EqualValues(t, 100, done.Load())
	require.Equal(t, 0, p.QueueLen())
}

func TestPoolLogsFailuresAndPanics(t *testing.T) {
	var buf bytes.Buffer
	p := NewPool(context.Background(), 1, 2, zerolog.New(zerolog.SyncWriter(&buf)))

	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}))
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	}))

	var after atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
		after.Store(true)
		return nil
	}))
	p.Shutdown()

	require.True(t, after.Load(), "worker must survive a panicking job")
	require.Contains(t, buf.String(), "boom")
	require.Contains(t, buf.String(), "job panic: kaboom")
}

func TestPoolSubmitGivesUpWhenContextDone(t *testing.T) {
	p := NewPool(context.Background(), 1, 1, zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, p.QueueLen())

	close(release)
	p.Shutdown()
	require.Equal(t, 0, p.QueueLen())
}

func TestPoolJobContextOutlivesParentUntilShutdown(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	p := NewPool(context.WithoutCancel(parent), 1, 1, zerolog.Nop())
	cancel()

	var ctxErr error
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
		ctxErr = ctx.Err()
		return nil
	}))
	p.Shutdown()

	require.NoError(t, ctxErr)
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := NewPool(context.Background(), 1, 1, zerolog.Nop())
	p.Shutdown()
	p.Shutdown()

	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, ErrPoolClosed)
	require.Equal(t, 0, p.QueueLen())
}

func TestPoolShutdownReleasesBlockedSubmitters(t *testing.T) {
	p := NewPool(context.Background(), 1, 1, zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func(ctx context.Context) error { return nil }))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.Submit(context.Background(), func(ctx context.Context) error { return nil })
		}()
	}

	shutdown := make(chan struct{})
	go func() {
		p.Shutdown()
		close(shutdown)
	}()
	close(release)
	wg.Wait()
	<-shutdown
	close(errs)

	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrPoolClosed)
		}
	}
	require.Equal(t, 0, p.QueueLen())
}
