// Package monitor periodically logs process health: telemetry backpressure,
// batch-writer throughput and cache liveness. It is log-only; nothing in
// the trading path reads it.
package monitor

import (
	"context"
	"log"
	"runtime"
	"time"

	"agent-core/internal/events"
	"agent-core/internal/persistence"
	"agent-core/pkg/cache"
)

const defaultInterval = time.Minute

// Monitor samples engine internals on a fixed cadence.
type Monitor struct {
	bus      *events.Bus
	writer   *persistence.BatchWriter
	prices   *cache.PriceCache
	interval time.Duration
}

func New(bus *events.Bus, writer *persistence.BatchWriter, prices *cache.PriceCache) *Monitor {
	return &Monitor{
		bus:      bus,
		writer:   writer,
		prices:   prices,
		interval: defaultInterval,
	}
}

// Run logs one health line per interval until the context ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *Monitor) report() {
	batches, errs := m.writer.Stats()
	stale := m.prices.Cleanup()
	log.Printf("health: batches=%d write_errors=%d dropped_events=%d live_prices=%d stale_evicted=%d goroutines=%d",
		batches, errs, m.bus.Dropped(), len(m.prices.Snapshot()), stale, runtime.NumGoroutine())
}
