package lists

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/identity"
	"github.com/agentgate/agentgate/internal/validation"
)

// Handler provides administrative HTTP endpoints for list management.
type Handler struct {
	store Store
}

// NewHandler creates a list management handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up list endpoints. The group is expected to carry
// admin authentication middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/lists/:list", h.List)
	r.POST("/lists/:list", h.Add)
	r.DELETE("/lists/:list/:type/:value", h.Remove)
}

type addRequest struct {
	Type    IDType `json:"type" binding:"required"`
	Value   string `json:"value" binding:"required"`
	Reason  string `json:"reason"`
	AddedBy string `json:"addedBy"`
}

// List returns all entries of one list.
// GET /v1/lists/:list
func (h *Handler) List(c *gin.Context) {
	list := Kind(c.Param("list"))
	if !ValidKind(list) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_list",
			"message": "List must be 'block' or 'allow'",
		})
		return
	}

	entries, err := h.store.List(c.Request.Context(), list)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list entries",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"list":    list,
		"entries": entries,
		"count":   len(entries),
	})
}

// Add inserts a list entry (idempotent on the natural key).
// POST /v1/lists/:list
func (h *Handler) Add(c *gin.Context) {
	list := Kind(c.Param("list"))
	if !ValidKind(list) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_list",
			"message": "List must be 'block' or 'allow'",
		})
		return
	}

	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'type' and 'value'",
		})
		return
	}
	if !ValidIDType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_type",
			"message": "Type must be 'phone' or 'email'",
		})
		return
	}

	entry := &Entry{
		List:    list,
		Type:    req.Type,
		Value:   normalizeValue(req.Type, req.Value),
		Reason:  validation.SanitizeString(req.Reason, validation.MaxStringLength),
		AddedBy: validation.SanitizeString(req.AddedBy, 64),
	}

	if err := h.store.Add(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "add_failed",
			"message": "Failed to add list entry",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// Remove deletes a list entry.
// DELETE /v1/lists/:list/:type/:value
func (h *Handler) Remove(c *gin.Context) {
	list := Kind(c.Param("list"))
	typ := IDType(c.Param("type"))
	if !ValidKind(list) || !ValidIDType(typ) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Unknown list or identifier type",
		})
		return
	}

	value := normalizeValue(typ, c.Param("value"))
	if err := h.store.Remove(c.Request.Context(), list, typ, value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "remove_failed",
			"message": "Failed to remove list entry",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func normalizeValue(typ IDType, value string) string {
	switch typ {
	case TypePhone:
		return identity.NormalizePhone(value)
	default:
		return validation.NormalizeIdentifier(value)
	}
}
