package persistence

import (
	"context"
	"sync"
	"time"
)

// prune the memory throttle once it tracks this many streams
const memoryPruneThreshold = 1024

// in-process last-write timestamps per history stream
type MemoryThrottle struct {
	mu     sync.Mutex
	window time.Duration
	last   map[Key]time.Time
}

// creates a new memory throttle; a non-positive window uses the default
func NewMemoryThrottle(window time.Duration) *MemoryThrottle {
	if window <= 0 {
		window = DefaultEditWindow
	}

	return &MemoryThrottle{
		window: window,
		last:   make(map[Key]time.Time),
	}
}

func (t *MemoryThrottle) Allow(_ context.Context, key Key, now time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.last[key]
	if !ok {
		return true, nil
	}

	return now.Sub(last) >= t.window, nil
}

func (t *MemoryThrottle) Record(_ context.Context, key Key, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last[key] = now

	if len(t.last) > memoryPruneThreshold {
		for k, seen := range t.last {
			if now.Sub(seen) >= t.window {
				delete(t.last, k)
			}
		}
	}

	return nil
}

// reads the newest matching history record from the document store
type HistoryLookup interface {
	LastHistoryAt(ctx context.Context, documentID, userID int64, actionType string) (time.Time, bool, error)
}

// throttles by querying the last history row; two near-simultaneous edits may both pass
type StoreThrottle struct {
	lookup HistoryLookup
	window time.Duration
}

// creates a new store-backed throttle
func NewStoreThrottle(lookup HistoryLookup, window time.Duration) *StoreThrottle {
	if window <= 0 {
		window = DefaultEditWindow
	}

	return &StoreThrottle{
		lookup: lookup,
		window: window,
	}
}

func (t *StoreThrottle) Allow(ctx context.Context, key Key, now time.Time) (bool, error) {
	last, ok, err := t.lookup.LastHistoryAt(ctx, key.DocumentID, key.UserID, key.Action)
	if err != nil {
		return false, err
	}

	if !ok {
		return true, nil
	}

	return now.Sub(last) >= t.window, nil
}

// the appended history row is the record
func (t *StoreThrottle) Record(context.Context, Key, time.Time) error {
	return nil
}
