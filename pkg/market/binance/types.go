// Package market provides read-only access to Binance public market
// data: the klines REST endpoint and the kline websocket stream.
package market

// Kline represents a single candlestick with all official Binance fields.
type Kline struct {
	Symbol              string  // trading pair symbol
	OpenTime            int64   // 0: Open time (ms)
	Open                float64 // 1: Open price
	High                float64 // 2: High price
	Low                 float64 // 3: Low price
	Close               float64 // 4: Close price
	Volume              float64 // 5: Base asset volume
	CloseTime           int64   // 6: Close time (ms)
	QuoteVolume         float64 // 7: Quote asset volume
	NumberOfTrades      int     // 8: Number of trades
	TakerBuyBaseVolume  float64 // 9: Taker buy base asset volume
	TakerBuyQuoteVolume float64 // 10: Taker buy quote asset volume
	// Field 11 is unused/ignore

	// IsFinal is set on streamed klines once the interval has closed.
	IsFinal bool
}
