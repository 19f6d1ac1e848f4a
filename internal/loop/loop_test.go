package loop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/loop"
)

func startLoop(t *testing.T) *loop.Loop {
	t.Helper()

	l, err := loop.New(loop.Config{Logger: log.Noop})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return l
}

func TestLoopOrder(t *testing.T) {
	l := startLoop(t)

	got := []int{}
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	var result []int
	err := l.Do(context.Background(), func() { result = append(result, got...) })
	require.NoError(t, err)

	exp := make([]int, 100)
	for i := range exp {
		exp[i] = i
	}
	assert.Equal(t, exp, result)
}

func TestLoopPostFromLoop(t *testing.T) {
	l := startLoop(t)

	done := make(chan struct{})
	l.Post(func() {
		// Posting from the loop must not block.
		l.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested post was not executed")
	}
}

func TestLoopSingleGoroutine(t *testing.T) {
	l := startLoop(t)

	// A non synchronized counter only mutated from the loop, the race detector
	// would catch concurrent executions.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { counter++ })
		}()
	}
	wg.Wait()

	var got int
	require.NoError(t, l.Do(context.Background(), func() { got = counter }))
	assert.Equal(t, 50, got)
}

func TestLoopDoContextCancelled(t *testing.T) {
	l, err := loop.New(loop.Config{})
	require.NoError(t, err)

	// The loop is not running so Do can only end by the context.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopRunTwice(t *testing.T) {
	l := startLoop(t)

	// Ensure the first run is active.
	require.NoError(t, l.Do(context.Background(), func() {}))

	err := l.Run(context.Background())
	assert.Error(t, err)
}
