// Package persistence batches telemetry writes into SQLite transactions.
// Record volume scales with agents times tick rate, and SQLite commits are
// expensive; grouping writes keeps the single writer connection ahead of
// the stream.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"agent-core/pkg/db"
)

// Op is one deferred write. It runs inside the flush transaction.
type Op func(ctx context.Context, e db.Execer) error

// BatchWriter buffers ops and flushes them in a single transaction when the
// buffer fills or the flush interval elapses.
type BatchWriter struct {
	db       *sql.DB
	mu       sync.Mutex
	buffer   []Op
	maxSize  int
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup

	batches uint64
	errors  uint64
}

// NewBatchWriter starts a writer with the given buffer size and flush
// interval. Non-positive arguments fall back to defaults.
func NewBatchWriter(handle *sql.DB, maxSize int, interval time.Duration) *BatchWriter {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	bw := &BatchWriter{
		db:       handle,
		buffer:   make([]Op, 0, maxSize),
		maxSize:  maxSize,
		interval: interval,
		done:     make(chan struct{}),
	}
	bw.wg.Add(1)
	go bw.backgroundFlush()
	return bw
}

// Enqueue adds an op to the batch, flushing if the buffer is full.
func (bw *BatchWriter) Enqueue(op Op) {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, op)
	full := len(bw.buffer) >= bw.maxSize
	bw.mu.Unlock()

	if full {
		if err := bw.Flush(); err != nil {
			log.Printf("persistence: flush on full buffer: %v", err)
		}
	}
}

// Flush writes all buffered ops in one transaction. A failing op rolls back
// the whole batch.
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}
	ops := bw.buffer
	bw.buffer = make([]Op, 0, bw.maxSize)
	bw.mu.Unlock()

	return bw.execute(ops)
}

func (bw *BatchWriter) execute(ops []Op) error {
	ctx := context.Background()
	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		bw.countError()
		return fmt.Errorf("begin batch: %w", err)
	}

	for _, op := range ops {
		if err := op(ctx, tx); err != nil {
			_ = tx.Rollback()
			bw.countError()
			return fmt.Errorf("batch op: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		bw.countError()
		return fmt.Errorf("commit batch: %w", err)
	}

	bw.mu.Lock()
	bw.batches++
	bw.mu.Unlock()
	return nil
}

func (bw *BatchWriter) countError() {
	bw.mu.Lock()
	bw.errors++
	bw.mu.Unlock()
}

// Stats reports committed batches and failed flushes.
func (bw *BatchWriter) Stats() (batches, errors uint64) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.batches, bw.errors
}

func (bw *BatchWriter) backgroundFlush() {
	defer bw.wg.Done()
	ticker := time.NewTicker(bw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := bw.Flush(); err != nil {
				log.Printf("persistence: periodic flush: %v", err)
			}
		case <-bw.done:
			return
		}
	}
}

// Close stops the background flusher and drains the buffer.
func (bw *BatchWriter) Close() error {
	close(bw.done)
	bw.wg.Wait()
	return bw.Flush()
}
