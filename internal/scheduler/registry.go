// Package scheduler keeps at most one pending expiry timer per user.
//
// Schedule, Cancel, Lookup and the firing path for a given user id are
// serialized on a per-user lock, so they happen in a single order per key.
// Operations on different users never wait on each other.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/presence/internal/keylock"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidDelay = errors.New("invalid delay")
	ErrNotRunning   = errors.New("registry is not running")
)

// Callback runs when a timer fires. The entry it receives has already been
// removed from the registry.
type Callback func(ctx context.Context, userID int64, entry Entry)

// Entry describes a live timer.
type Entry struct {
	UserID      int64     `json:"user_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	FireAt      time.Time `json:"fire_at"`
	Generation  uint64    `json:"generation"`
}

type liveTimer struct {
	entry    Entry
	callback Callback
	timer    Timer
}

type Registry struct {
	clock  Clock
	logger *zerolog.Logger
	keys   *keylock.Map[int64]

	entries sync.Map // int64 -> *liveTimer
	live    atomic.Int64
	gen     atomic.Uint64

	lifeMu   sync.RWMutex
	running  bool
	runCtx   context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func NewRegistry(clock Clock, logger *zerolog.Logger) *Registry {
	if clock == nil {
		clock = SystemClock
	}
	return &Registry{
		clock:  clock,
		logger: logger,
		keys:   keylock.New[int64](),
	}
}

// Start makes the registry accept timers. Calling it on a running registry
// does nothing.
func (r *Registry) Start() {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	if r.running {
		return
	}
	r.runCtx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	r.logger.Info().Msg("Expiry scheduler started")
}

// Stop cancels every live timer, refuses new ones and waits for callbacks that
// were already dispatched. If ctx ends first, the callbacks' context is
// cancelled and ctx.Err() is returned.
func (r *Registry) Stop(ctx context.Context) error {
	r.lifeMu.Lock()
	if !r.running {
		r.lifeMu.Unlock()
		return nil
	}
	r.running = false
	r.lifeMu.Unlock()

	cancelled := r.CancelAll()

	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	r.cancel()

	r.logger.Info().Int("cancelled", cancelled).Msg("Expiry scheduler stopped")
	return err
}

// Schedule registers callback to run for userID no earlier than delay from
// now. A live timer for the same user is cancelled first; the old callback
// can no longer run once Schedule returns.
func (r *Registry) Schedule(userID int64, delay time.Duration, callback Callback) (Entry, error) {
	if delay < 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrInvalidDelay, delay)
	}

	r.lifeMu.RLock()
	defer r.lifeMu.RUnlock()
	if !r.running {
		return Entry{}, ErrNotRunning
	}

	unlock := r.keys.Lock(userID)
	defer unlock()

	if old, ok := r.load(userID); ok {
		old.timer.Stop()
		r.entries.Delete(userID)
		r.live.Add(-1)
	}

	now := r.clock.Now()
	gen := r.gen.Add(1)
	lt := &liveTimer{
		entry: Entry{
			UserID:      userID,
			ScheduledAt: now,
			FireAt:      now.Add(delay),
			Generation:  gen,
		},
		callback: callback,
	}
	lt.timer = r.clock.AfterFunc(delay, func() { r.fire(userID, gen) })
	r.entries.Store(userID, lt)
	r.live.Add(1)

	r.logger.Debug().
		Int64("user_id", userID).
		Dur("delay", delay).
		Uint64("generation", gen).
		Msg("Expiry scheduled")
	return lt.entry, nil
}

// Cancel removes the live timer for userID. It reports false when there was
// none, including when the timer has already fired.
func (r *Registry) Cancel(userID int64) bool {
	unlock := r.keys.Lock(userID)
	defer unlock()

	lt, ok := r.load(userID)
	if !ok {
		return false
	}
	lt.timer.Stop()
	r.entries.Delete(userID)
	r.live.Add(-1)

	r.logger.Debug().
		Int64("user_id", userID).
		Uint64("generation", lt.entry.Generation).
		Msg("Expiry cancelled")
	return true
}

// CancelAll cancels every live timer and returns how many there were.
func (r *Registry) CancelAll() int {
	var ids []int64
	r.entries.Range(func(key, _ any) bool {
		ids = append(ids, key.(int64))
		return true
	})

	n := 0
	for _, id := range ids {
		if r.Cancel(id) {
			n++
		}
	}
	return n
}

func (r *Registry) Lookup(userID int64) (Entry, bool) {
	unlock := r.keys.Lock(userID)
	defer unlock()

	lt, ok := r.load(userID)
	if !ok {
		return Entry{}, false
	}
	return lt.entry, true
}

// Len returns the number of live timers.
func (r *Registry) Len() int {
	return int(r.live.Load())
}

func (r *Registry) load(userID int64) (*liveTimer, bool) {
	v, ok := r.entries.Load(userID)
	if !ok {
		return nil, false
	}
	return v.(*liveTimer), true
}

func (r *Registry) fire(userID int64, gen uint64) {
	r.lifeMu.RLock()
	if !r.running {
		r.lifeMu.RUnlock()
		return
	}
	ctx := r.runCtx

	unlock := r.keys.Lock(userID)
	lt, ok := r.load(userID)
	if !ok || lt.entry.Generation != gen {
		// replaced or cancelled after the runtime had already dispatched it
		unlock()
		r.lifeMu.RUnlock()
		return
	}
	r.entries.Delete(userID)
	r.live.Add(-1)
	unlock()

	r.inflight.Add(1)
	r.lifeMu.RUnlock()
	defer r.inflight.Done()

	r.logger.Debug().
		Int64("user_id", userID).
		Uint64("generation", gen).
		Msg("Expiry fired")
	lt.callback(ctx, userID, lt.entry)
}
