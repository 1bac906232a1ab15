// Package api exposes a read-only report surface over a running engine:
// balances, open orders and order lists, recent fills, and a websocket
// tick stream.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wedge/internal/broker"
	"wedge/internal/events"
)

// StatusSource is the view of an engine the server reports on. Both the
// backtest and the live engine satisfy it.
type StatusSource interface {
	Balances() (base, quote float64)
	OpenOrders() []broker.OrderView
	OpenOrderLists() []broker.OrderListView
}

// Meta describes the run exposed at /api/status.
type Meta struct {
	Mode     string // "backtest" or "live"
	Symbol   string
	Interval string
	Strategy string
}

// Server wires HTTP endpoints around an engine and its event bus.
type Server struct {
	Router   *gin.Engine
	Bus      *events.Bus
	Source   StatusSource
	Meta     Meta
	recorder *recorder
}

func NewServer(source StatusSource, bus *events.Bus, meta Meta) *Server {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:   r,
		Bus:      bus,
		Source:   source,
		Meta:     meta,
		recorder: newRecorder(bus, 256),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/balances", s.getBalances)
		api.GET("/orders", s.getOrders)
		api.GET("/orderlists", s.getOrderLists)
		api.GET("/fills", s.getFills)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
