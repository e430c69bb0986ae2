package outcomes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/reputation"
)

// Handler provides the outcome intake endpoint.
type Handler struct {
	service *Service
}

// NewHandler creates an outcome handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the outcome endpoint.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/outcomes", h.Record)
}

type recordRequest struct {
	TransactionID string  `json:"transactionId" binding:"required"`
	MerchantID    string  `json:"merchantId"`
	CustomerPhone string  `json:"customerPhone"`
	CustomerEmail string  `json:"customerEmail"`
	AgentPlatform string  `json:"agentPlatform"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Outcome       string  `json:"outcome" binding:"required"`
}

// Record ingests one settlement outcome.
// POST /v1/outcomes
func (h *Handler) Record(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'transactionId' and 'outcome'",
		})
		return
	}

	ev := &Event{
		TransactionID: req.TransactionID,
		MerchantID:    req.MerchantID,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		AgentPlatform: req.AgentPlatform,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Outcome:       reputation.Outcome(strings.ToLower(req.Outcome)),
	}

	if err := h.service.Apply(c.Request.Context(), ev); err != nil {
		if errors.Is(err, ErrInvalidOutcome) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_outcome",
				"message": "Outcome must be completed, failed, chargeback, or fraud",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "record_failed",
			"message": "Failed to record outcome",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recorded":      true,
		"transactionId": req.TransactionID,
		"outcome":       ev.Outcome,
	})
}
