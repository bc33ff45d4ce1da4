package aster

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"agent-core/pkg/exchange/common"
)

const (
	testKey    = "test-api-key"
	testSecret = "test-api-secret"
)

// verifySignature recomputes the HMAC over the sorted query string minus the
// signature parameter and compares it with what the client sent.
func verifySignature(t *testing.T, values url.Values) {
	t.Helper()
	got := values.Get("signature")
	if got == "" {
		t.Fatal("request missing signature parameter")
	}
	values.Del("signature")

	h := hmac.New(sha256.New, []byte(testSecret))
	h.Write([]byte(values.Encode())) // Encode sorts keys lexicographically
	want := hex.EncodeToString(h.Sum(nil))
	if got != want {
		t.Fatalf("signature mismatch: got %s, want %s", got, want)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		APIKey:    testKey,
		APISecret: testSecret,
		BaseURL:   srv.URL,
	})
	return c, srv
}

func TestSignedRequestShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/time":
			w.Write([]byte(`{"serverTime": 1700000000000}`))
		case "/fapi/v2/account":
			if r.Header.Get("X-MBX-APIKEY") != testKey {
				t.Errorf("X-MBX-APIKEY=%q, expected %q", r.Header.Get("X-MBX-APIKEY"), testKey)
			}
			if r.Header.Get("Authorization") != "" {
				t.Error("API key must not travel in the Authorization header")
			}
			verifySignature(t, r.URL.Query())
			if r.URL.Query().Get("timestamp") == "" {
				t.Error("signed request missing timestamp")
			}
			w.Write([]byte(`{
				"totalWalletBalance": "1000.50",
				"totalMarginBalance": "1010.75",
				"totalUnrealizedProfit": "10.25",
				"availableBalance": "900.00",
				"updateTime": 1700000000123
			}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	info, err := c.GetAccountInfo(context.Background())
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info.Equity != 1010.75 {
		t.Fatalf("Equity=%v, expected 1010.75", info.Equity)
	}
	if info.UnrealizedPnL != 10.25 {
		t.Fatalf("UnrealizedPnL=%v, expected 10.25", info.UnrealizedPnL)
	}
}

func TestPlaceOrderSignsFormBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/time":
			w.Write([]byte(`{"serverTime": 1700000000000}`))
		case "/fapi/v1/order":
			if r.Method != http.MethodPost {
				t.Errorf("method=%s, expected POST", r.Method)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			verifySignature(t, r.PostForm)
			if got := r.PostForm.Get("type"); got != "MARKET" {
				t.Errorf("type=%q, expected MARKET", got)
			}
			w.Write([]byte(`{"symbol":"BTCUSDT","orderId":42,"clientOrderId":"agent-1","status":"NEW"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ack, err := c.PlaceOrder(context.Background(), OrderParams{
		Symbol:        "BTCUSDT",
		Side:          common.SideBuy,
		Type:          common.OrderTypeMarket,
		Quantity:      1,
		ClientOrderID: "agent-1",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if ack.OrderID != 42 {
		t.Fatalf("OrderID=%d, expected 42", ack.OrderID)
	}
}

func TestGetPositionsFiltersFlat(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/time":
			w.Write([]byte(`{"serverTime": 1700000000000}`))
		case "/fapi/v2/positionRisk":
			w.Write([]byte(`[
				{"symbol":"BTCUSDT","positionAmt":"0.000","entryPrice":"0","unRealizedProfit":"0","leverage":"20"},
				{"symbol":"ETHUSDT","positionAmt":"-2","entryPrice":"3000","unRealizedProfit":"-12.5","leverage":"3"}
			]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	positions, err := c.GetPositions(context.Background(), "")
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions, expected flat one filtered", len(positions))
	}
	p := positions[0]
	if p.Side != common.SideSell || p.Quantity != 2 {
		t.Fatalf("short normalization wrong: side=%s qty=%v", p.Side, p.Quantity)
	}
}

func TestGetOrderMalformedDecimal(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/time":
			w.Write([]byte(`{"serverTime": 1700000000000}`))
		case "/fapi/v1/order":
			w.Write([]byte(`{"symbol":"BTCUSDT","orderId":7,"status":"FILLED","price":"not-a-number","avgPrice":"0","executedQty":"0","cumQuote":"0"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	_, err := c.GetOrder(context.Background(), "BTCUSDT", 7)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Field != "price" {
		t.Fatalf("ParseError.Field=%q, expected price", parseErr.Field)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fapi/v1/time" {
			w.Write([]byte(`{"serverTime": 1700000000000}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
	})

	_, err := c.GetAccountInfo(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != -2019 || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
}

func TestMissingCredentials(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	if _, err := c.GetAccountInfo(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestExecutedPrice(t *testing.T) {
	tests := []struct {
		name     string
		order    *Order
		intended float64
		want     float64
	}{
		{
			name:     "filled uses cumQuote over executedQty",
			order:    &Order{ExecutedQty: 0.5, CumQuote: 1000, Price: 2000, Status: "FILLED"},
			intended: 1990,
			want:     2000,
		},
		{
			name:     "no fills falls back to limit price",
			order:    &Order{ExecutedQty: 0, CumQuote: 0, Price: 1995},
			intended: 1990,
			want:     1995,
		},
		{
			name:     "market order with no fills falls back to intended",
			order:    &Order{},
			intended: 1990,
			want:     1990,
		},
		{
			name:     "nil order falls back to intended",
			order:    nil,
			intended: 1990,
			want:     1990,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExecutedPrice(tt.order, tt.intended); got != tt.want {
				t.Fatalf("ExecutedPrice=%v, expected %v", got, tt.want)
			}
		})
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   string
		want common.TradeState
	}{
		{"FILLED", common.TradeStateClosed},
		{"PARTIALLY_FILLED", common.TradeStateOpen},
		{"CANCELED", common.TradeStateCancelled},
		{"REJECTED", common.TradeStateError},
		{"NEW", common.TradeStateOpen},
		{"EXPIRED", common.TradeStateOpen},
	}
	for _, tt := range tests {
		if got := MapStatus(tt.in); got != tt.want {
			t.Fatalf("MapStatus(%q)=%q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeSyncOffsetApplied(t *testing.T) {
	ts := common.NewTimeSync(func(ctx context.Context) (int64, error) {
		return 1700000000000, nil
	})
	if ts.Synced() {
		t.Fatal("fresh TimeSync must not report synced")
	}
	if err := ts.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !ts.Synced() {
		t.Fatal("Sync did not mark synced")
	}
	// Now() = local + offset, and offset = server - local, so Now() should
	// land near the fixed server time.
	now := ts.Now()
	if now < 1699999990000 || now > 1700000010000 {
		t.Fatalf("Now()=%d not anchored to server time", now)
	}
}
