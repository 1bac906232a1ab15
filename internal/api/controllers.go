package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wedge/internal/broker"
)

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":     s.Meta.Mode,
		"symbol":   s.Meta.Symbol,
		"interval": s.Meta.Interval,
		"strategy": s.Meta.Strategy,
	})
}

func (s *Server) getBalances(c *gin.Context) {
	base, quote := s.Source.Balances()
	c.JSON(http.StatusOK, gin.H{
		"base":  base,
		"quote": quote,
	})
}

type orderResponse struct {
	ID     uint64 `json:"id"`
	ListID uint64 `json:"list_id,omitempty"`
	InList bool   `json:"in_list"`
	Side   string `json:"side"`
	Status string `json:"status"`
}

func orderResponses(views []broker.OrderView) []orderResponse {
	out := make([]orderResponse, 0, len(views))
	for _, v := range views {
		out = append(out, orderResponse{
			ID:     v.ID,
			ListID: v.ListID,
			InList: v.InList,
			Side:   v.Side.String(),
			Status: v.Status.String(),
		})
	}
	return out
}

func (s *Server) getOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": orderResponses(s.Source.OpenOrders())})
}

func (s *Server) getOrderLists(c *gin.Context) {
	lists := s.Source.OpenOrderLists()
	out := make([]gin.H, 0, len(lists))
	for _, l := range lists {
		out = append(out, gin.H{
			"id":     l.ID,
			"orders": orderResponses(l.Orders),
		})
	}
	c.JSON(http.StatusOK, gin.H{"order_lists": out})
}

func (s *Server) getFills(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fills": s.recorder.Fills()})
}
