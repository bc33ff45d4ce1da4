package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"agent-core/pkg/cache"
)

const reconnectDelay = 5 * time.Second

// Stream keeps the price cache warm from the public miniTicker websocket.
// It is purely an optimization: when the stream is down, Source falls back
// to REST lookups.
type Stream struct {
	symbols []string
	cache   *cache.PriceCache
	dialer  *websocket.Dialer
	url     string
}

// NewStream builds a combined miniTicker stream for the given symbols.
func NewStream(symbols []string, c *cache.PriceCache) *Stream {
	streams := lo.Map(symbols, func(s string, _ int) string {
		return strings.ToLower(s) + "@miniTicker"
	})
	u := url.URL{
		Scheme:   "wss",
		Host:     "fstream.binance.com",
		Path:     "/stream",
		RawQuery: "streams=" + strings.Join(streams, "/"),
	}
	return &Stream{
		symbols: symbols,
		cache:   c,
		dialer:  websocket.DefaultDialer,
		url:     u.String(),
	}
}

// Run consumes the stream until the context is cancelled, reconnecting
// after transient failures.
func (s *Stream) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("price stream: %v, reconnecting in %v", err, reconnectDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		symbol, price, err := parseMiniTicker(msg)
		if err != nil {
			log.Printf("price stream: parse error: %v", err)
			continue
		}
		s.cache.Set(symbol, price)
	}
}

// parseMiniTicker unwraps a combined-stream miniTicker frame.
func parseMiniTicker(msg []byte) (string, float64, error) {
	var frame struct {
		Data struct {
			Symbol string `json:"s"`
			Close  string `json:"c"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return "", 0, err
	}
	if frame.Data.Symbol == "" {
		return "", 0, fmt.Errorf("frame without symbol")
	}
	price, err := strconv.ParseFloat(frame.Data.Close, 64)
	if err != nil {
		return "", 0, fmt.Errorf("close price %q: %w", frame.Data.Close, err)
	}
	return frame.Data.Symbol, price, nil
}
