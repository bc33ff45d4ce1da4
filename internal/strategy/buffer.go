package strategy

// PriceBuffer is a bounded price history. Appends beyond capacity evict
// the oldest sample. Consecutive duplicates are skipped so that re-running
// a tick on unchanged input does not shift the history.
type PriceBuffer struct {
	capacity int
	prices   []float64
}

// NewPriceBuffer creates a buffer retaining at most capacity samples.
func NewPriceBuffer(capacity int) *PriceBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &PriceBuffer{
		capacity: capacity,
		prices:   make([]float64, 0, capacity),
	}
}

// Add appends a finite price. Non-finite prices and exact repeats of the
// latest sample are ignored.
func (b *PriceBuffer) Add(price float64) {
	if !isFinite(price) {
		return
	}
	if n := len(b.prices); n > 0 && b.prices[n-1] == price {
		return
	}
	if len(b.prices) == b.capacity {
		copy(b.prices, b.prices[1:])
		b.prices = b.prices[:b.capacity-1]
	}
	b.prices = append(b.prices, price)
}

// Prices returns the history oldest-first. The slice is shared; callers
// must not mutate it.
func (b *PriceBuffer) Prices() []float64 {
	return b.prices
}

// Len returns the number of retained samples.
func (b *PriceBuffer) Len() int {
	return len(b.prices)
}
