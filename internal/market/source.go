package market

// Source yields candles in non-decreasing open-time order. A source is
// finite and not restartable; construct a fresh one to replay.
type Source interface {
	// Next returns the next candle, or false when the source is exhausted.
	Next() (Candle, bool)
	// Err reports the first failure that ended iteration early, if any.
	Err() error
}

// SliceSource serves candles from memory.
type SliceSource struct {
	candles []Candle
	pos     int
}

func NewSliceSource(candles []Candle) *SliceSource {
	return &SliceSource{candles: candles}
}

func (s *SliceSource) Next() (Candle, bool) {
	if s.pos >= len(s.candles) {
		return Candle{}, false
	}
	c := s.candles[s.pos]
	s.pos++
	return c, true
}

func (s *SliceSource) Err() error { return nil }
