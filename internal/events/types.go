package events

// Event enumerates high-level topics inside the toolkit.
type Event string

const (
	EventTick             Event = "tick"
	EventOrderFilled      Event = "order.filled"
	EventOrderCanceled    Event = "order.canceled"
	EventDownloadProgress Event = "download.progress"
)

// OrderFill is the payload published on EventOrderFilled.
type OrderFill struct {
	OrderID  uint64
	Side     string
	Base     float64
	Quote    float64
	Price    float64
	OpenTime int64
}

// Tick is the payload published on EventTick after a settlement pass.
type Tick struct {
	OpenTime int64
	Close    float64
	Base     float64
	Quote    float64
}

// DownloadProgress is the payload published while backfilling candles.
type DownloadProgress struct {
	Symbol   string
	Interval string
	Stored   int
	UpTo     int64
}
