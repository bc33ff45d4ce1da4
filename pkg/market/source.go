// Package market is the engine's independent price source. Prices come from
// public market-data endpoints and streams, deliberately decoupled from the
// signed account API so that price freshness never depends on trading
// credentials.
package market

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"agent-core/pkg/cache"
)

// Source answers current-price lookups, serving from the shared cache and
// falling back to a REST lookup on a miss.
type Source struct {
	client *futures.Client
	cache  *cache.PriceCache
}

// NewSource builds a read-only price source over the given cache. No
// credentials are needed for public market data.
func NewSource(c *cache.PriceCache) *Source {
	return &Source{
		client: binance.NewFuturesClient("", ""),
		cache:  c,
	}
}

// Price returns the current price for a symbol. Cache hits are served
// directly; misses go to the REST ticker and refresh the cache.
func (s *Source) Price(ctx context.Context, symbol string) (float64, error) {
	if price, ok := s.cache.Get(symbol); ok {
		return price, nil
	}

	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("parse price for %s: %w", symbol, err)
		}
		s.cache.Set(symbol, price)
		return price, nil
	}
	return 0, fmt.Errorf("symbol %s not found in price list", symbol)
}
