// Package live drives a strategy against a real exchange. It mirrors
// the backtest engine's command protocol: the strategy sees the same
// Snapshot and issues the same Commands, but fills happen on the
// exchange and are observed by polling.
package live

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"wedge/internal/broker"
	"wedge/internal/events"
	"wedge/internal/market"
	spot "wedge/pkg/exchange/binance"
	binmarket "wedge/pkg/market/binance"
)

// Config holds the live engine settings.
type Config struct {
	Symbol       string
	Interval     string
	BaseAsset    string
	QuoteAsset   string
	PollInterval time.Duration
	Retries      int
	Backoff      time.Duration
}

func (c *Config) withDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.Backoff == 0 {
		c.Backoff = 2 * time.Second
	}
}

// Engine polls the exchange, synchronizes order state, and feeds the
// strategy one snapshot per closed candle. It implements broker.Broker
// so strategies can hold a direct handle, exactly as in backtests.
type Engine struct {
	cfg    Config
	trade  *spot.Client
	data   *binmarket.Client
	bus    *events.Bus
	strat  broker.Strategy
	pace   *rate.Limiter
	fatalf func(format string, args ...any)

	// mu guards order, list and balance state: the poll loop mutates it
	// while the report server reads it.
	mu sync.RWMutex

	nextID  uint64
	orders  map[uint64]*trackedOrder
	lists   map[uint64]*trackedList
	byExgID map[int64]uint64

	base  float64
	quote float64

	lastOpenTime int64
}

type trackedOrder struct {
	id     uint64
	listID uint64
	inList bool
	exgID  int64
	side   broker.Side
	status broker.Status
	price  float64
	qty    float64
}

type trackedList struct {
	id       uint64
	exgID    int64
	orderIDs []uint64
}

// NewEngine wires a live engine. bus may be nil.
func NewEngine(cfg Config, trade *spot.Client, data *binmarket.Client, bus *events.Bus) *Engine {
	cfg.withDefaults()
	return &Engine{
		cfg:     cfg,
		trade:   trade,
		data:    data,
		bus:     bus,
		pace:    rate.NewLimiter(rate.Limit(10), 20),
		fatalf:  log.Fatalf,
		orders:  make(map[uint64]*trackedOrder),
		lists:   make(map[uint64]*trackedList),
		byExgID: make(map[int64]uint64),
	}
}

// withRetry runs fn up to cfg.Retries times with a fixed backoff
// between attempts, pacing exchange requests under the shared rate
// limiter. Exhausting the retries is unrecoverable: a live engine that
// cannot reach the exchange must not keep trading on stale state, so
// it aborts the process.
func (e *Engine) withRetry(what string, fn func() error) {
	var err error
	for attempt := 1; attempt <= e.cfg.Retries; attempt++ {
		_ = e.pace.Wait(context.Background())
		if err = fn(); err == nil {
			return
		}
		log.Printf("live: %s failed (attempt %d/%d): %v", what, attempt, e.cfg.Retries, err)
		time.Sleep(e.cfg.Backoff)
	}
	e.fatalf("live: %s failed after %d attempts: %v", what, e.cfg.Retries, err)
}

// Run polls until ctx is canceled.
func (e *Engine) Run(ctx context.Context, strat broker.Strategy) error {
	e.strat = strat
	strat.SetBroker(e)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	log.Printf("live: engine started: symbol=%s interval=%s strategy=%s",
		e.cfg.Symbol, e.cfg.Interval, strat.Name())

	for {
		select {
		case <-ctx.Done():
			log.Printf("live: engine stopping: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll runs one synchronization pass: order statuses, balances, then
// the latest closed candle; a new candle produces one strategy tick.
func (e *Engine) poll(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.syncOrders(ctx)
	e.syncBalances(ctx)

	candle, fresh := e.latestClosedCandle(ctx)
	if !fresh {
		return
	}

	snap := e.snapshot(candle)
	for _, cmd := range e.strat.OnTick(snap) {
		e.Execute(cmd)
	}

	if e.bus != nil {
		e.bus.Publish(events.EventTick, events.Tick{
			OpenTime: candle.OpenTime,
			Close:    candle.Close,
			Base:     e.base,
			Quote:    e.quote,
		})
	}
}

func (e *Engine) syncOrders(ctx context.Context) {
	for id, o := range e.orders {
		if o.status.Terminal() {
			continue
		}
		var exg spot.Order
		e.withRetry("query order", func() error {
			var err error
			exg, err = e.trade.GetOrder(ctx, e.cfg.Symbol, o.exgID)
			return err
		})

		status := mapStatus(exg.Status)
		if status == o.status {
			continue
		}
		o.status = status
		if status == broker.StatusFilled {
			price, _ := strconv.ParseFloat(exg.Price, 64)
			qty, _ := strconv.ParseFloat(exg.ExecutedQty, 64)
			if price == 0 {
				price = o.price
			}
			log.Printf("live: order %d filled: side=%s qty=%s price=%s",
				id, o.side, exg.ExecutedQty, exg.Price)
			if e.bus != nil {
				e.bus.Publish(events.EventOrderFilled, events.OrderFill{
					OrderID: id,
					Side:    o.side.String(),
					Base:    qty,
					Quote:   qty * price,
					Price:   price,
				})
			}
		}
	}
}

func (e *Engine) syncBalances(ctx context.Context) {
	var balances []spot.Balance
	e.withRetry("query account", func() error {
		var err error
		balances, err = e.trade.Account(ctx)
		return err
	})
	for _, b := range balances {
		switch b.Asset {
		case e.cfg.BaseAsset:
			e.base = b.Free
		case e.cfg.QuoteAsset:
			e.quote = b.Free
		}
	}
}

// latestClosedCandle fetches the most recent finished candle. The
// second-to-last kline is the last closed one; the last is still open.
func (e *Engine) latestClosedCandle(ctx context.Context) (market.Candle, bool) {
	var klines []binmarket.Kline
	e.withRetry("fetch klines", func() error {
		var err error
		klines, err = e.data.GetKlines(ctx, e.cfg.Symbol, e.cfg.Interval, 2, 0, 0)
		return err
	})
	if len(klines) < 2 {
		return market.Candle{}, false
	}
	k := klines[len(klines)-2]
	if k.OpenTime == e.lastOpenTime {
		return market.Candle{}, false
	}
	e.lastOpenTime = k.OpenTime
	return market.Candle{
		OpenTime:      k.OpenTime,
		CloseTime:     k.CloseTime,
		Open:          k.Open,
		High:          k.High,
		Low:           k.Low,
		Close:         k.Close,
		Volume:        k.Volume,
		QuoteVolume:   k.QuoteVolume,
		Trades:        k.NumberOfTrades,
		TakerBuyBase:  k.TakerBuyBaseVolume,
		TakerBuyQuote: k.TakerBuyQuoteVolume,
	}, true
}

func (e *Engine) snapshot(c market.Candle) broker.Snapshot {
	return broker.Snapshot{
		Candle:         c,
		Base:           e.base,
		Quote:          e.quote,
		OpenOrders:     e.openOrdersLocked(),
		OpenOrderLists: e.openOrderListsLocked(),
	}
}

func (e *Engine) view(o *trackedOrder) broker.OrderView {
	return broker.OrderView{
		ID:     o.id,
		ListID: o.listID,
		InList: o.inList,
		Side:   o.side,
		Status: o.status,
	}
}

// Execute dispatches one strategy command.
func (e *Engine) Execute(cmd broker.Command) {
	switch c := cmd.(type) {
	case broker.CancelOrder:
		e.CancelOrder(c.OrderID)
	case broker.CancelOrderList:
		e.CancelOrderList(c.ListID)
	case broker.OrderSpec:
		e.NewOrder(c)
	case broker.OrderListSpec:
		e.NewOrderList(c)
	default:
		panic(fmt.Sprintf("live: unknown command %T", cmd))
	}
}

// mapStatus converts an exchange order status to the local vocabulary.
func mapStatus(s string) broker.Status {
	switch strings.ToUpper(s) {
	case "NEW":
		return broker.StatusNew
	case "PENDING_NEW":
		return broker.StatusPendingNew
	case "PARTIALLY_FILLED":
		return broker.StatusPartiallyFilled
	case "FILLED":
		return broker.StatusFilled
	case "CANCELED", "EXPIRED", "REJECTED", "EXPIRED_IN_MATCH":
		return broker.StatusCanceled
	default:
		return broker.StatusNew
	}
}

func clientID() string {
	return "wedge-" + uuid.NewString()
}
