package risk

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/lists"
)

// EventPublisher receives completed assessments and review decisions for
// live feeds.
type EventPublisher interface {
	PublishAssessment(a *Assessment)
	PublishReview(a *Assessment)
}

// Handler provides the assessment HTTP surface.
type Handler struct {
	engine    *Engine
	store     Store
	listStore lists.Store
	events    EventPublisher
	logger    *slog.Logger
}

// NewHandler creates a risk handler. events may be nil.
func NewHandler(engine *Engine, store Store, listStore lists.Store, events EventPublisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, store: store, listStore: listStore, events: events, logger: logger}
}

// RegisterRoutes sets up assessment endpoints. Review runs under the admin
// group; the rest under the public API group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/assess", h.Assess)
	r.GET("/assessments/:id", h.GetAssessment)
	r.GET("/assessments/high-risk", h.ListHighRisk)
	r.GET("/risk/stats", h.GetStats)
}

// RegisterAdminRoutes sets up the review endpoint on an admin-guarded group.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/assessments/:id/review", h.Review)
}

// Assess scores one transaction.
// POST /v1/assess
func (h *Handler) Assess(c *gin.Context) {
	var tc TransactionContext
	if err := c.ShouldBindJSON(&tc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be a valid transaction context",
		})
		return
	}

	assessment, err := h.engine.Assess(c.Request.Context(), &tc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_transaction",
			"message": err.Error(),
		})
		return
	}

	if h.events != nil {
		h.events.PublishAssessment(assessment)
	}

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// GetAssessment returns one assessment by id.
// GET /v1/assessments/:id
func (h *Handler) GetAssessment(c *gin.Context) {
	a, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Assessment not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load assessment",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": a})
}

// ListHighRisk returns unreviewed high-risk assessments, newest first.
// GET /v1/assessments/high-risk?limit=
func (h *Handler) ListHighRisk(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	assessments, err := h.store.ListHighRiskPending(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list high-risk assessments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

// GetStats returns aggregate assessment statistics.
// GET /v1/risk/stats?since= (RFC3339 timestamp or a duration like "24h")
func (h *Handler) GetStats(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			since = t
		} else if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			since = time.Now().Add(-d)
		} else {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_since",
				"message": "since must be an RFC3339 timestamp or a duration like 24h",
			})
			return
		}
	}

	stats, err := h.store.Stats(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to compute statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

type reviewRequest struct {
	ReviewedBy string `json:"reviewedBy" binding:"required"`
	Action     string `json:"action" binding:"required"`
}

// Review marks an assessment reviewed. The "blocklist" action also inserts
// block-list entries for the customer's identifiers.
// POST /v1/admin/assessments/:id/review
func (h *Handler) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'reviewedBy' and 'action'",
		})
		return
	}

	a, err := h.store.Review(c.Request.Context(), c.Param("id"), req.ReviewedBy, req.Action)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Assessment not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "review_failed",
			"message": "Failed to record review",
		})
		return
	}

	if req.Action == "blocklist" {
		h.blocklistCustomer(c, a, req.ReviewedBy)
	}

	if h.events != nil {
		h.events.PublishReview(a)
	}

	c.JSON(http.StatusOK, gin.H{"assessment": a})
}

func (h *Handler) blocklistCustomer(c *gin.Context, a *Assessment, addedBy string) {
	reason := "blocked by review of assessment " + a.ID
	if a.CustomerPhone != "" {
		entry := &lists.Entry{
			List: lists.KindBlock, Type: lists.TypePhone,
			Value: a.CustomerPhone, Reason: reason, AddedBy: addedBy,
		}
		if err := h.listStore.Add(c.Request.Context(), entry); err != nil {
			h.logger.Error("failed to blocklist phone from review",
				"assessment_id", a.ID, "error", err)
		}
	}
	if a.CustomerEmail != "" {
		entry := &lists.Entry{
			List: lists.KindBlock, Type: lists.TypeEmail,
			Value: a.CustomerEmail, Reason: reason, AddedBy: addedBy,
		}
		if err := h.listStore.Add(c.Request.Context(), entry); err != nil {
			h.logger.Error("failed to blocklist email from review",
				"assessment_id", a.ID, "error", err)
		}
	}
}
