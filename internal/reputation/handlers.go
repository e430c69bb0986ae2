package reputation

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for platform reputation.
type Handler struct {
	table         *BaseTable
	counters      CounterStore
	snapshotStore SnapshotStore
}

// NewHandler creates a reputation handler. snapshotStore may be nil, which
// disables the history endpoint.
func NewHandler(table *BaseTable, counters CounterStore, snapshotStore SnapshotStore) *Handler {
	return &Handler{table: table, counters: counters, snapshotStore: snapshotStore}
}

// RegisterRoutes sets up reputation endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reputation", h.ListPlatforms)
	r.GET("/reputation/:platform", h.GetPlatform)
	r.GET("/reputation/:platform/history", h.GetHistory)
}

// ListPlatforms returns every configured platform plus any platform that has
// recorded outcomes, with base scores and live rates.
// GET /v1/reputation
func (h *Handler) ListPlatforms(c *gin.Context) {
	all, err := h.counters.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to read reputation counters",
		})
		return
	}

	byPlatform := make(map[string]*Counters, len(all))
	for _, cnt := range all {
		byPlatform[cnt.Platform] = cnt
	}

	seen := make(map[string]bool)
	var views []*View
	for _, p := range h.table.Platforms() {
		views = append(views, NewView(h.table, p, byPlatform[p]))
		seen[p] = true
	}
	for p, cnt := range byPlatform {
		if !seen[p] {
			views = append(views, NewView(h.table, p, cnt))
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Platform < views[j].Platform })

	c.JSON(http.StatusOK, gin.H{
		"platforms": views,
		"count":     len(views),
	})
}

// GetPlatform returns one platform's base score and live counters.
// GET /v1/reputation/:platform
func (h *Handler) GetPlatform(c *gin.Context) {
	platform := strings.ToLower(c.Param("platform"))

	cnt, err := h.counters.Get(c.Request.Context(), platform)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to read reputation counters",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reputation": NewView(h.table, platform, cnt)})
}

// GetHistory returns historical snapshots for one platform.
// GET /v1/reputation/:platform/history?from=&to=&limit=
func (h *Handler) GetHistory(c *gin.Context) {
	platform := strings.ToLower(c.Param("platform"))

	if h.snapshotStore == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":   "not_available",
			"message": "Historical reputation data is not available",
		})
		return
	}

	q := HistoryQuery{
		Platform: platform,
		Limit:    100,
	}

	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			q.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			q.To = t
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
			if q.Limit > 1000 {
				q.Limit = 1000
			}
		}
	}

	snapshots, err := h.snapshotStore.Query(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to query reputation history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"platform":  platform,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}
