// Package aster is the signed REST client for the Aster perpetual-futures
// API (Binance-compatible wire protocol). It owns request signing, server
// clock synchronization, and order-status queries. The client never retries
// on its own; callers recover transient failures on their next tick.
package aster

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"agent-core/pkg/exchange/common"
)

const (
	defaultBaseURL    = "https://fapi.asterdex.com"
	defaultRecvWindow = 5000

	// One agent polls every scan interval plus a handful of order calls;
	// 8 req/s with a small burst stays far below the venue weight budget.
	pacerRPS   = 8
	pacerBurst = 16
)

// Config holds API credentials and transport tuning for one client.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	RecvWindow int64 // ms
	HTTPClient *http.Client
}

// Client is a signed HTTP client for account, order, and position endpoints.
// Safe for use by a single agent goroutine.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	timeSync   *common.TimeSync
	pacer      *common.Pacer
	syncOnce   sync.Once
}

// NewClient builds a client. Credentials are validated lazily on the first
// signed call so that unsigned endpoints (server time) remain usable.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = defaultRecvWindow
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: hc,
		pacer:      common.NewPacer(pacerRPS, pacerBurst),
	}
	c.timeSync = common.NewTimeSync(c.GetServerTime)
	return c
}

// GetServerTime fetches the venue clock in milliseconds (unsigned).
func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	body, err := c.doPublic(ctx, "/fapi/v1/time", nil)
	if err != nil {
		return 0, err
	}
	var res struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, fmt.Errorf("decode server time: %w", err)
	}
	return res.ServerTime, nil
}

// SyncServerTime establishes the clock offset used to timestamp signed
// requests. Called automatically before the first signed request.
func (c *Client) SyncServerTime(ctx context.Context) error {
	return c.timeSync.Sync(ctx)
}

// GetAccountInfo returns the account's equity view.
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/account", url.Values{})
	if err != nil {
		return nil, err
	}
	var raw struct {
		TotalWalletBalance    string `json:"totalWalletBalance"`
		TotalMarginBalance    string `json:"totalMarginBalance"`
		TotalUnrealizedProfit string `json:"totalUnrealizedProfit"`
		AvailableBalance      string `json:"availableBalance"`
		UpdateTime            int64  `json:"updateTime"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode account info: %w", err)
	}

	info := &AccountInfo{UpdateTime: raw.UpdateTime}
	if info.WalletBalance, err = parseDecimal("totalWalletBalance", raw.TotalWalletBalance); err != nil {
		return nil, err
	}
	if info.Equity, err = parseDecimal("totalMarginBalance", raw.TotalMarginBalance); err != nil {
		return nil, err
	}
	if info.UnrealizedPnL, err = parseDecimal("totalUnrealizedProfit", raw.TotalUnrealizedProfit); err != nil {
		return nil, err
	}
	if info.AvailableBalance, err = parseDecimal("availableBalance", raw.AvailableBalance); err != nil {
		return nil, err
	}
	if info.WalletBalance != 0 {
		info.ROI = info.UnrealizedPnL / info.WalletBalance
	}
	return info, nil
}

// GetPositions returns open positions; symbol narrows the query when set.
// Flat entries (zero quantity) are filtered out.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]Position, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v2/positionRisk", params)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Symbol           string `json:"symbol"`
		PositionAmt      string `json:"positionAmt"`
		EntryPrice       string `json:"entryPrice"`
		UnRealizedProfit string `json:"unRealizedProfit"`
		Leverage         string `json:"leverage"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	out := make([]Position, 0, len(raw))
	for _, r := range raw {
		qty, err := parseDecimal("positionAmt", r.PositionAmt)
		if err != nil {
			return nil, err
		}
		if qty == 0 {
			continue
		}
		entry, err := parseDecimal("entryPrice", r.EntryPrice)
		if err != nil {
			return nil, err
		}
		upnl, err := parseDecimal("unRealizedProfit", r.UnRealizedProfit)
		if err != nil {
			return nil, err
		}
		lev, err := parseDecimal("leverage", r.Leverage)
		if err != nil {
			return nil, err
		}
		side := common.SideBuy
		if qty < 0 {
			side = common.SideSell
			qty = -qty
		}
		out = append(out, Position{
			Symbol:        r.Symbol,
			Side:          side,
			Quantity:      qty,
			EntryPrice:    entry,
			UnrealizedPnL: upnl,
			Leverage:      lev,
		})
	}
	return out, nil
}

// PlaceOrder submits an order and returns the exchange ack. The ack's price
// and quantity are provisional until reconciled through GetOrder.
func (c *Client) PlaceOrder(ctx context.Context, p OrderParams) (*OrderAck, error) {
	params := url.Values{}
	params.Set("symbol", p.Symbol)
	params.Set("side", string(p.Side))
	params.Set("type", string(p.Type))
	if p.Quantity > 0 {
		params.Set("quantity", formatFloat(p.Quantity))
	}
	if p.Type == common.OrderTypeLimit {
		params.Set("price", formatFloat(p.Price))
		tif := p.TimeInForce
		if tif == "" {
			tif = common.TIFGTC
		}
		params.Set("timeInForce", string(tif))
	}
	if p.Type == common.OrderTypeStopMarket || p.Type == common.OrderTypeTakeProfitMarket {
		params.Set("stopPrice", formatFloat(p.StopPrice))
	}
	if p.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if p.ClosePosition {
		params.Set("closePosition", "true")
	}
	if p.ClientOrderID != "" {
		params.Set("newClientOrderId", p.ClientOrderID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Symbol        string `json:"symbol"`
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order ack: %w", err)
	}
	return &OrderAck{
		Symbol:        resp.Symbol,
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Status:        resp.Status,
	}, nil
}

// GetOrder fetches the authoritative state of an order.
func (c *Client) GetOrder(ctx context.Context, symbol string, orderID int64) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	body, err := c.doSigned(ctx, http.MethodGet, "/fapi/v1/order", params)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Symbol      string `json:"symbol"`
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		Side        string `json:"side"`
		Type        string `json:"type"`
		Price       string `json:"price"`
		AvgPrice    string `json:"avgPrice"`
		ExecutedQty string `json:"executedQty"`
		CumQuote    string `json:"cumQuote"`
		UpdateTime  int64  `json:"updateTime"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}

	o := &Order{
		Symbol:     raw.Symbol,
		OrderID:    raw.OrderID,
		Status:     raw.Status,
		Side:       raw.Side,
		Type:       raw.Type,
		UpdateTime: raw.UpdateTime,
	}
	if o.Price, err = parseDecimal("price", raw.Price); err != nil {
		return nil, err
	}
	if o.AvgPrice, err = parseDecimal("avgPrice", raw.AvgPrice); err != nil {
		return nil, err
	}
	if o.ExecutedQty, err = parseDecimal("executedQty", raw.ExecutedQty); err != nil {
		return nil, err
	}
	if o.CumQuote, err = parseDecimal("cumQuote", raw.CumQuote); err != nil {
		return nil, err
	}
	return o, nil
}

// doPublic issues an unsigned GET.
func (c *Client) doPublic(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

// doSigned signs and sends an authenticated request. Parameters are encoded
// in lexicographic key order, HMAC-SHA256 signed with the API secret, and
// the signature travels as one more query parameter; the API key goes in
// its own header.
func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil, errors.New("aster: API key and secret required")
	}

	// Establish the clock offset once before the first signed call. A
	// failure falls back to the local clock inside recvWindow.
	c.syncOnce.Do(func() {
		if err := c.SyncServerTime(ctx); err != nil {
			log.Printf("aster: initial time sync failed, using local clock: %v", err)
		}
	})

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("timestamp", strconv.FormatInt(c.timeSync.Now(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	params.Set("signature", sign(params.Encode(), c.cfg.APISecret))

	var (
		req *http.Request
		err error
	)
	encoded := params.Encode()
	switch method {
	case http.MethodGet, http.MethodDelete:
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+encoded, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		apiErr := &APIError{Status: res.StatusCode, Message: string(body)}
		var parsed struct {
			Code int64  `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(body, &parsed) == nil && parsed.Msg != "" {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Msg
		}
		return nil, apiErr
	}
	return body, nil
}

// sign computes the hex HMAC-SHA256 of payload with the account secret.
func sign(payload, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDecimal converts the venue's string-encoded decimals, rejecting
// malformed payloads with a typed error instead of letting zero values leak
// into order math.
func parseDecimal(field, value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Value: value}
	}
	return f, nil
}
