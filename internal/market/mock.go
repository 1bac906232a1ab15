package market

import "math/rand"

// MockSource generates a random-walk candle series for local development
// and demos. A fixed seed gives a reproducible series.
type MockSource struct {
	rng      *rand.Rand
	price    float64
	step     float64
	interval int64
	openTime int64
	left     int
}

// NewMockSource produces count candles of the given interval (ms) starting
// at startTime with a random walk around startPrice.
func NewMockSource(seed int64, startTime int64, interval int64, startPrice, step float64, count int) *MockSource {
	if startPrice == 0 {
		startPrice = 100.0
	}
	if step == 0 {
		step = 0.5
	}
	if interval == 0 {
		interval = 60_000
	}
	return &MockSource{
		rng:      rand.New(rand.NewSource(seed)),
		price:    startPrice,
		step:     step,
		interval: interval,
		openTime: startTime,
		left:     count,
	}
}

func (m *MockSource) Next() (Candle, bool) {
	if m.left <= 0 {
		return Candle{}, false
	}
	m.left--

	open := m.price
	// simple random walk
	move := (m.rng.Float64()*2 - 1) * m.step
	cls := open + move
	if cls <= 0 {
		cls = open
	}
	high := open
	low := open
	if cls > high {
		high = cls
	}
	if cls < low {
		low = cls
	}
	high += m.rng.Float64() * m.step / 2
	low -= m.rng.Float64() * m.step / 2
	if low < 0 {
		low = 0
	}

	c := Candle{
		OpenTime:  m.openTime,
		CloseTime: m.openTime + m.interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    1 + m.rng.Float64()*10,
		Trades:    1 + m.rng.Intn(100),
	}
	c.QuoteVolume = c.Volume * cls
	m.price = cls
	m.openTime += m.interval
	return c, true
}

func (m *MockSource) Err() error { return nil }
