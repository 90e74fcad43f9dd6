package api

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"

	"errwatch/internal/model"
	"errwatch/internal/store"
)

// agentLister is the subset of *server.Hub the REST handlers depend on.
type agentLister interface {
	AgentRecords() []model.AgentRecord
	StatsSummary() model.StatsSummary
}

// Handlers holds the read-only REST endpoints spec.md §6 names, backed by
// the Memory Store and the Ingestion Hub's agent bookkeeping.
type Handlers struct {
	store     *store.Store
	agents    agentLister
	logger    *pterm.Logger
	startedAt time.Time
}

// NewHandlers builds the REST handler set.
func NewHandlers(st *store.Store, agents agentLister, logger *pterm.Logger) *Handlers {
	return &Handlers{store: st, agents: agents, logger: logger, startedAt: time.Now()}
}

// GetServers serves GET /api/servers: the full known agent list, online
// and offline.
func (h *Handlers) GetServers(c *gin.Context) {
	c.JSON(http.StatusOK, h.agents.AgentRecords())
}

// GetErrors serves GET /api/errors?limit=&q=: a free-text search over the
// deduplicated error corpus when q is present, otherwise the most-recent
// errors capped at limit (default 50).
func (h *Handlers) GetErrors(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	if q := c.Query("q"); q != "" {
		c.JSON(http.StatusOK, h.store.Search(q))
		return
	}

	c.JSON(http.StatusOK, h.store.Errors(limit))
}

// GetStats serves GET /api/stats: cross-agent totals.
func (h *Handlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.agents.StatsSummary())
}

// GetInsights serves GET /api/insights: the current top-5 derived
// insight list.
func (h *Handlers) GetInsights(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Insights())
}

// GetHealth serves GET /api/health: liveness plus a humanized uptime and
// memory figure, in the teacher's habit of a lightweight unauthenticated
// health probe.
func (h *Handlers) GetHealth(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  humanize.RelTime(h.startedAt, time.Now(), "ago", "from now"),
		"memory":  humanize.Bytes(mem.Alloc),
		"servers": len(h.agents.AgentRecords()),
		"errors":  h.store.Len(),
	})
}
