package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// StreamClient manages lightweight streaming from Binance public
// websockets.
type StreamClient struct {
	StreamURL string
	dialer    *websocket.Dialer
}

// NewStreamClient builds a websocket client; testnet toggles the host.
func NewStreamClient(testnet bool) *StreamClient {
	host := "stream.binance.com:9443"
	if testnet {
		host = "testnet.binance.vision"
	}
	return &StreamClient{
		StreamURL: (&url.URL{Scheme: "wss", Host: host, Path: "/ws"}).String(),
		dialer:    websocket.DefaultDialer,
	}
}

// SubscribeKlines listens to the kline stream and pushes parsed klines
// into a channel. It returns the channel and a stop function.
func (c *StreamClient) SubscribeKlines(ctx context.Context, symbol, interval string) (<-chan Kline, func(), error) {
	// Binance requires lowercase symbols for WebSocket streams
	stream := fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval)
	u := fmt.Sprintf("%s/%s", c.StreamURL, stream)

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial binance ws: %w", err)
	}

	out := make(chan Kline, 100)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			// Ignore errors; connection may already be closed.
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
			close(out)
		})
	}

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, msg, err := conn.ReadMessage()
			if err != nil {
				// If the caller closed the connection, just exit quietly.
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
					strings.Contains(err.Error(), "use of closed network connection") {
					return
				}
				log.Printf("binance ws read error: %v", err)
				return
			}

			parsed, err := ParseKlineMessage(msg)
			if err != nil {
				log.Printf("binance ws parse error: %v", err)
				continue
			}
			out <- parsed
		}
	}()

	return out, stop, nil
}

// ParseKlineMessage decodes a kline stream payload.
func ParseKlineMessage(msg []byte) (Kline, error) {
	var raw struct {
		Kline struct {
			StartTime     int64  `json:"t"`
			CloseTime     int64  `json:"T"`
			Symbol        string `json:"s"`
			Interval      string `json:"i"`
			Open          any    `json:"o"`
			Close         any    `json:"c"`
			High          any    `json:"h"`
			Low           any    `json:"l"`
			Volume        any    `json:"v"`
			Trades        int    `json:"n"`
			IsFinal       bool   `json:"x"`
			QuoteVolume   any    `json:"q"`
			TakerBuyBase  any    `json:"V"`
			TakerBuyQuote any    `json:"Q"`
		} `json:"k"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Kline{}, err
	}
	k := raw.Kline
	return Kline{
		Symbol:              k.Symbol,
		OpenTime:            k.StartTime,
		CloseTime:           k.CloseTime,
		Open:                toFloat(k.Open),
		Close:               toFloat(k.Close),
		High:                toFloat(k.High),
		Low:                 toFloat(k.Low),
		Volume:              toFloat(k.Volume),
		NumberOfTrades:      k.Trades,
		QuoteVolume:         toFloat(k.QuoteVolume),
		TakerBuyBaseVolume:  toFloat(k.TakerBuyBase),
		TakerBuyQuoteVolume: toFloat(k.TakerBuyQuote),
		IsFinal:             k.IsFinal,
	}, nil
}
