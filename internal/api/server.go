// Package api exposes the read-only status surface: agent heartbeats,
// recent telemetry and live prices. It never issues exchange calls and
// never mutates engine state.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"agent-core/pkg/cache"
	"agent-core/pkg/config"
	"agent-core/pkg/db"
)

const defaultListLimit = 50

// Server wires the HTTP endpoints around the telemetry store and price
// cache.
type Server struct {
	Router  *gin.Engine
	queries *db.Queries
	prices  *cache.PriceCache
	agents  []config.AgentConfig
	started time.Time
}

// NewServer builds the router. Credentials never leave this process: agent
// listings expose identity fields only.
func NewServer(queries *db.Queries, prices *cache.PriceCache, agents []config.AgentConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	s := &Server{
		Router:  r,
		queries: queries,
		prices:  prices,
		agents:  agents,
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/healthz", s.health)

	api := s.Router.Group("/api")
	{
		api.GET("/agents", s.listAgents)
		api.GET("/agents/:id/trades", s.agentTrades)
		api.GET("/agents/:id/signals", s.agentSignals)
		api.GET("/trades/:id/exit-plan", s.tradeExitPlan)
		api.GET("/prices", s.listPrices)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

type agentView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Symbol   string    `json:"symbol"`
	Strategy string    `json:"strategy"`
	State    string    `json:"state"`
	Detail   string    `json:"detail,omitempty"`
	SeenAt   time.Time `json:"seen_at,omitzero"`
}

func (s *Server) listAgents(c *gin.Context) {
	statuses, err := s.queries.AgentStatuses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	byAgent := lo.KeyBy(statuses, func(st db.StatusRow) string { return st.AgentID })

	views := lo.Map(s.agents, func(a config.AgentConfig, _ int) agentView {
		v := agentView{ID: a.ID, Name: a.Name, Symbol: a.Symbol, Strategy: a.Strategy}
		if st, ok := byAgent[a.ID]; ok {
			v.State = st.State
			v.Detail = st.Detail
			v.SeenAt = st.UpdatedAt
		}
		return v
	})
	c.JSON(http.StatusOK, gin.H{"agents": views})
}

func (s *Server) agentTrades(c *gin.Context) {
	trades, err := s.queries.RecentTrades(c.Request.Context(), c.Param("id"), listLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) agentSignals(c *gin.Context) {
	signals, err := s.queries.RecentSignals(c.Request.Context(), c.Param("id"), listLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (s *Server) tradeExitPlan(c *gin.Context) {
	plan, err := s.queries.ExitPlan(c.Request.Context(), c.Param("id"))
	if err == db.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "no exit plan for trade"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) listPrices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prices": s.prices.Snapshot()})
}

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", ""))
	if err != nil || limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}

func requestLogger() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz"},
	})
}
