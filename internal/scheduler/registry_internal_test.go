package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeldKeyLockStallsOnlyThatKey(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(SystemClock, &logger)
	r.Start()
	defer r.Stop(context.Background())

	noop := func(context.Context, int64, Entry) {}
	_, err := r.Schedule(1, time.Hour, noop)
	require.NoError(t, err)

	unlock := r.keys.Lock(1)

	blocked := make(chan bool, 1)
	go func() { blocked <- r.Cancel(1) }()

	other := make(chan struct{})
	go func() {
		defer close(other)
		_, err := r.Schedule(2, time.Hour, noop)
		assert.NoError(t, err)
		_, ok := r.Lookup(2)
		assert.True(t, ok)
		assert.True(t, r.Cancel(2))
	}()

	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("key 2 waited on key 1's critical section")
	}

	select {
	case <-blocked:
		t.Fatal("cancel on key 1 ran while its lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	assert.True(t, <-blocked)
}
