package spot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

const (
	testKey    = "test-key"
	testSecret = "test-secret"
)

// verifySignature recomputes the HMAC over the received params and
// checks it against the signature param.
func verifySignature(t *testing.T, params url.Values) {
	t.Helper()
	sig := params.Get("signature")
	if sig == "" {
		t.Errorf("request missing signature")
		return
	}
	params.Del("signature")

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(params.Encode()))
	want := hex.EncodeToString(mac.Sum(nil))
	if sig != want {
		t.Errorf("signature=%s, expected %s", sig, want)
	}
}

func signedParams(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	if got := r.Header.Get("X-MBX-APIKEY"); got != testKey {
		t.Errorf("X-MBX-APIKEY=%q, expected %q", got, testKey)
	}

	var params url.Values
	switch r.Method {
	case http.MethodGet, http.MethodDelete:
		params = r.URL.Query()
	default:
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		params = r.PostForm
	}
	verifySignature(t, params)
	return params
}

func testClient(url string) *Client {
	return New(Config{APIKey: testKey, APISecret: testSecret, BaseURL: url})
}

func TestNewOrderSignsAndPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/order" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		params := signedParams(t, r)
		if params.Get("symbol") != "BTCUSDT" || params.Get("side") != "BUY" {
			t.Errorf("order params wrong: %v", params)
		}
		if params.Get("type") != "LIMIT" || params.Get("timeInForce") != "GTC" {
			t.Errorf("limit params wrong: %v", params)
		}
		if params.Get("price") != "100.5" || params.Get("quantity") != "0.25" {
			t.Errorf("price/quantity wrong: %v", params)
		}
		w.Write([]byte(`{"orderId": 42, "status": "NEW", "symbol": "BTCUSDT"}`))
	}))
	defer srv.Close()

	order, err := testClient(srv.URL).NewOrder(context.Background(), OrderRequest{
		Symbol: "BTCUSDT",
		Side:   "buy",
		Type:   "limit",
		Qty:    0.25,
		Price:  100.5,
	})
	if err != nil {
		t.Fatalf("NewOrder returned error: %v", err)
	}
	if order.OrderID != 42 || order.Status != "NEW" {
		t.Fatalf("order=%+v, expected id 42 status NEW", order)
	}
}

func TestCancelOrderUsesQueryString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v3/order" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		params := signedParams(t, r)
		if params.Get("orderId") != "42" {
			t.Errorf("orderId=%q, expected 42", params.Get("orderId"))
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := testClient(srv.URL).CancelOrder(context.Background(), "BTCUSDT", 42); err != nil {
		t.Fatalf("CancelOrder returned error: %v", err)
	}
}

func TestNewOTOCOParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/orderList/otoco" {
			t.Errorf("path=%s, expected /api/v3/orderList/otoco", r.URL.Path)
		}
		params := signedParams(t, r)
		if params.Get("workingType") != "LIMIT" || params.Get("workingSide") != "BUY" {
			t.Errorf("working params wrong: %v", params)
		}
		if params.Get("pendingAboveType") != "LIMIT_MAKER" || params.Get("pendingAbovePrice") != "110" {
			t.Errorf("above leg wrong: %v", params)
		}
		if params.Get("pendingBelowType") != "STOP_LOSS" || params.Get("pendingBelowStopPrice") != "90" {
			t.Errorf("below leg wrong: %v", params)
		}
		w.Write([]byte(`{
			"orderListId": 7,
			"listStatusType": "EXEC_STARTED",
			"orders": [
				{"symbol": "BTCUSDT", "orderId": 10},
				{"symbol": "BTCUSDT", "orderId": 11},
				{"symbol": "BTCUSDT", "orderId": 12}
			]
		}`))
	}))
	defer srv.Close()

	list, err := testClient(srv.URL).NewOTOCO(context.Background(), OTOCORequest{
		Symbol:                "BTCUSDT",
		WorkingType:           "LIMIT",
		WorkingSide:           "BUY",
		WorkingPrice:          100,
		WorkingQuantity:       1,
		PendingSide:           "SELL",
		PendingQuantity:       1,
		PendingAboveType:      "LIMIT_MAKER",
		PendingAbovePrice:     110,
		PendingBelowType:      "STOP_LOSS",
		PendingBelowStopPrice: 90,
	})
	if err != nil {
		t.Fatalf("NewOTOCO returned error: %v", err)
	}
	if list.OrderListID != 7 || len(list.Orders) != 3 {
		t.Fatalf("list=%+v, expected id 7 with 3 orders", list)
	}
}

func TestAccountParsesBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signedParams(t, r)
		w.Write([]byte(`{"balances": [
			{"asset": "BTC", "free": "0.5", "locked": "0.1"},
			{"asset": "USDT", "free": "1000.0", "locked": "0"}
		]}`))
	}))
	defer srv.Close()

	balances, err := testClient(srv.URL).Account(context.Background())
	if err != nil {
		t.Fatalf("Account returned error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("balances=%d, expected 2", len(balances))
	}
	if balances[0].Asset != "BTC" || balances[0].Free != 0.5 || balances[0].Locked != 0.1 {
		t.Fatalf("BTC balance wrong: %+v", balances[0])
	}
}

func TestErrorStatusIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": -2010, "msg": "insufficient balance"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Account(context.Background())
	if err == nil {
		t.Fatalf("expected error on 400 status")
	}
}

func TestMissingCredentials(t *testing.T) {
	c := New(Config{})
	if _, err := c.Account(context.Background()); err == nil {
		t.Fatalf("expected error without credentials")
	}
}

func TestServerTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/time" {
			t.Errorf("path=%s, expected /api/v3/time", r.URL.Path)
		}
		if r.Header.Get("X-MBX-APIKEY") != "" {
			t.Errorf("server time request should not be signed")
		}
		w.Write([]byte(`{"serverTime": 1700000000000}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).ServerTime(context.Background())
	if err != nil {
		t.Fatalf("ServerTime: %v", err)
	}
	if got != 1700000000000 {
		t.Fatalf("ServerTime=%d, expected 1700000000000", got)
	}
}
