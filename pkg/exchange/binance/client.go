// Package spot is a signed Binance spot trading client covering the
// surface the live trading engine needs: account balances, single
// orders, conditional order lists and order queries.
package spot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds Binance credentials.
type Config struct {
	APIKey     string
	APISecret  string
	Testnet    bool
	RecvWindow int64  // ms
	BaseURL    string // override, mainly for tests
}

// Client is a Binance spot trading client.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.binance.com"
		if cfg.Testnet {
			base = "https://testnet.binance.vision"
		}
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ServerTime returns the exchange clock in unix ms. Useful for
// checking local clock drift before signing requests.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/time", nil)
	if err != nil {
		return 0, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return 0, fmt.Errorf("binance GET /api/v3/time status %d: %s", res.StatusCode, string(body))
	}
	var resp struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode server time response: %w", err)
	}
	return resp.ServerTime, nil
}

// OrderRequest describes one new order.
type OrderRequest struct {
	Symbol    string
	Side      string // BUY or SELL
	Type      string // LIMIT, MARKET, STOP_LOSS, STOP_LOSS_LIMIT...
	Qty       float64
	Price     float64
	StopPrice float64
	ClientID  string
}

// Order is the exchange view of an order.
type Order struct {
	OrderID       int64  `json:"orderId"`
	OrderListID   int64  `json:"orderListId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
}

// NewOrder submits a single order.
func (c *Client) NewOrder(ctx context.Context, req OrderRequest) (Order, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", strings.ToUpper(req.Side))
	params.Set("type", strings.ToUpper(req.Type))
	params.Set("quantity", formatFloat(req.Qty))

	switch strings.ToUpper(req.Type) {
	case "LIMIT", "STOP_LOSS_LIMIT", "TAKE_PROFIT_LIMIT":
		params.Set("price", formatFloat(req.Price))
		params.Set("timeInForce", "GTC")
	}
	switch strings.ToUpper(req.Type) {
	case "STOP_LOSS", "STOP_LOSS_LIMIT", "TAKE_PROFIT", "TAKE_PROFIT_LIMIT":
		params.Set("stopPrice", formatFloat(req.StopPrice))
	}
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}

	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return Order{}, err
	}
	var resp Order
	if err := json.Unmarshal(body, &resp); err != nil {
		return Order{}, fmt.Errorf("decode order response: %w", err)
	}
	return resp, nil
}

// GetOrder queries one order by exchange id.
func (c *Client) GetOrder(ctx context.Context, symbol string, orderID int64) (Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/order", params)
	if err != nil {
		return Order{}, err
	}
	var resp Order
	if err := json.Unmarshal(body, &resp); err != nil {
		return Order{}, fmt.Errorf("decode order response: %w", err)
	}
	return resp, nil
}

// CancelOrder cancels one order by exchange id.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	_, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/order", params)
	return err
}

// OrderList is the exchange view of a conditional order group.
type OrderList struct {
	OrderListID int64  `json:"orderListId"`
	ListStatus  string `json:"listStatusType"`
	Orders      []struct {
		Symbol        string `json:"symbol"`
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
	} `json:"orders"`
}

// OCORequest describes an order list of two legs where one cancels the
// other. Types follow the Binance vocabulary (LIMIT_MAKER, STOP_LOSS...).
type OCORequest struct {
	Symbol         string
	Side           string
	Quantity       float64
	AboveType      string
	AbovePrice     float64
	AboveStopPrice float64
	BelowType      string
	BelowPrice     float64
	BelowStopPrice float64
}

// NewOCO submits a one-cancels-the-other order list.
func (c *Client) NewOCO(ctx context.Context, req OCORequest) (OrderList, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", strings.ToUpper(req.Side))
	params.Set("quantity", formatFloat(req.Quantity))
	params.Set("aboveType", req.AboveType)
	setPriceParams(params, "above", req.AboveType, req.AbovePrice, req.AboveStopPrice)
	params.Set("belowType", req.BelowType)
	setPriceParams(params, "below", req.BelowType, req.BelowPrice, req.BelowStopPrice)

	return c.postOrderList(ctx, "/api/v3/orderList/oco", params)
}

// OTORequest describes a working order whose fill releases one pending
// order.
type OTORequest struct {
	Symbol           string
	WorkingType      string
	WorkingSide      string
	WorkingPrice     float64
	WorkingQuantity  float64
	PendingType      string
	PendingSide      string
	PendingQuantity  float64
	PendingPrice     float64
	PendingStopPrice float64
}

// NewOTO submits a one-triggers-the-other order list.
func (c *Client) NewOTO(ctx context.Context, req OTORequest) (OrderList, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("workingType", req.WorkingType)
	params.Set("workingSide", strings.ToUpper(req.WorkingSide))
	params.Set("workingPrice", formatFloat(req.WorkingPrice))
	params.Set("workingQuantity", formatFloat(req.WorkingQuantity))
	params.Set("workingTimeInForce", "GTC")
	params.Set("pendingType", req.PendingType)
	params.Set("pendingSide", strings.ToUpper(req.PendingSide))
	params.Set("pendingQuantity", formatFloat(req.PendingQuantity))
	setPriceParams(params, "pending", req.PendingType, req.PendingPrice, req.PendingStopPrice)

	return c.postOrderList(ctx, "/api/v3/orderList/oto", params)
}

// OTOCORequest describes a working order whose fill releases an OCO
// bracket.
type OTOCORequest struct {
	Symbol                string
	WorkingType           string
	WorkingSide           string
	WorkingPrice          float64
	WorkingQuantity       float64
	PendingSide           string
	PendingQuantity       float64
	PendingAboveType      string
	PendingAbovePrice     float64
	PendingAboveStopPrice float64
	PendingBelowType      string
	PendingBelowPrice     float64
	PendingBelowStopPrice float64
}

// NewOTOCO submits a one-triggers-one-cancels-the-other order list.
func (c *Client) NewOTOCO(ctx context.Context, req OTOCORequest) (OrderList, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("workingType", req.WorkingType)
	params.Set("workingSide", strings.ToUpper(req.WorkingSide))
	params.Set("workingPrice", formatFloat(req.WorkingPrice))
	params.Set("workingQuantity", formatFloat(req.WorkingQuantity))
	params.Set("workingTimeInForce", "GTC")
	params.Set("pendingSide", strings.ToUpper(req.PendingSide))
	params.Set("pendingQuantity", formatFloat(req.PendingQuantity))
	params.Set("pendingAboveType", req.PendingAboveType)
	setPriceParams(params, "pendingAbove", req.PendingAboveType, req.PendingAbovePrice, req.PendingAboveStopPrice)
	params.Set("pendingBelowType", req.PendingBelowType)
	setPriceParams(params, "pendingBelow", req.PendingBelowType, req.PendingBelowPrice, req.PendingBelowStopPrice)

	return c.postOrderList(ctx, "/api/v3/orderList/otoco", params)
}

// CancelOrderList cancels an entire order list.
func (c *Client) CancelOrderList(ctx context.Context, symbol string, orderListID int64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderListId", strconv.FormatInt(orderListID, 10))

	_, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/orderList", params)
	return err
}

func (c *Client) postOrderList(ctx context.Context, endpoint string, params url.Values) (OrderList, error) {
	body, err := c.doSigned(ctx, http.MethodPost, endpoint, params)
	if err != nil {
		return OrderList{}, err
	}
	var resp OrderList
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderList{}, fmt.Errorf("decode order list response: %w", err)
	}
	return resp, nil
}

// setPriceParams fills price/stopPrice params for one leg by type.
func setPriceParams(params url.Values, prefix, legType string, price, stopPrice float64) {
	switch strings.ToUpper(legType) {
	case "LIMIT_MAKER", "LIMIT":
		params.Set(prefix+"Price", formatFloat(price))
	case "STOP_LOSS", "TAKE_PROFIT":
		params.Set(prefix+"StopPrice", formatFloat(stopPrice))
	case "STOP_LOSS_LIMIT", "TAKE_PROFIT_LIMIT":
		params.Set(prefix+"Price", formatFloat(price))
		params.Set(prefix+"StopPrice", formatFloat(stopPrice))
		params.Set(prefix+"TimeInForce", "GTC")
	}
}

// Balance is one asset holding.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Account queries current balances.
func (c *Client) Account(ctx context.Context) ([]Balance, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode account response: %w", err)
	}

	balances := make([]Balance, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		balances = append(balances, Balance{Asset: b.Asset, Free: free, Locked: locked})
	}
	return balances, nil
}

func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil, errors.New("binance: API key/secret required")
	}

	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
	params.Set("signature", sign(params.Encode(), c.cfg.APISecret))

	var (
		req *http.Request
		err error
	)
	endpoint := c.baseURL + path
	encoded := params.Encode()
	switch method {
	case http.MethodGet, http.MethodDelete:
		// For GET/DELETE Binance expects signed params in the query string.
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+encoded, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("binance %s %s status %d: %s", method, path, res.StatusCode, string(body))
	}
	return body, nil
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
