package common

import (
	"context"
	"sync"
	"time"
)

// TimeSync tracks the millisecond offset between the exchange clock and the
// local clock. One Sync before the first signed request is enough; the
// offset is then reused for every timestamped call.
type TimeSync struct {
	getServerTime func(ctx context.Context) (int64, error)

	mu       sync.RWMutex
	offset   int64
	lastSync time.Time
}

// NewTimeSync wraps a server-time fetcher.
func NewTimeSync(getServerTime func(ctx context.Context) (int64, error)) *TimeSync {
	return &TimeSync{getServerTime: getServerTime}
}

// Sync measures the server offset, assuming symmetric network latency.
func (ts *TimeSync) Sync(ctx context.Context) error {
	before := time.Now().UnixMilli()
	serverTime, err := ts.getServerTime(ctx)
	if err != nil {
		return err
	}
	after := time.Now().UnixMilli()
	local := before + (after-before)/2

	ts.mu.Lock()
	ts.offset = serverTime - local
	ts.lastSync = time.Now()
	ts.mu.Unlock()
	return nil
}

// Synced reports whether an offset has been established.
func (ts *TimeSync) Synced() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return !ts.lastSync.IsZero()
}

// Now returns the current time in exchange milliseconds.
func (ts *TimeSync) Now() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return time.Now().UnixMilli() + ts.offset
}

// Offset returns the current offset in milliseconds.
func (ts *TimeSync) Offset() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.offset
}
