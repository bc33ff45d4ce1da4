package common

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer throttles outgoing requests so one agent cannot burn the venue's
// request-weight budget on its own. It blocks, it never rejects.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer allows rps sustained requests per second with the given burst.
func NewPacer(rps float64, burst int) *Pacer {
	if burst < 1 {
		burst = 1
	}
	return &Pacer{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request slot is available or the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}
