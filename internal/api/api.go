package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/wishrank/internal/engine"
	"github.com/roach88/wishrank/internal/item"
	"github.com/roach88/wishrank/internal/key"
)

// Handler serves the list routes.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandler creates a Handler backed by e.
func NewHandler(e *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: e, logger: logger}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(e *engine.Engine, logger *slog.Logger) *gin.Engine {
	h := NewHandler(e, logger)

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	lists := r.Group("/lists/:list")
	lists.GET("/items", h.ListItems)
	lists.GET("/snapshot", h.Snapshot)
	lists.POST("/items", h.CreateItem)
	lists.POST("/items/ranked", h.InsertRanked)
	lists.PUT("/items/:id/position", h.MoveItem)
	lists.DELETE("/items/:id", h.DeleteItem)
	lists.POST("/rebalance", h.Rebalance)

	return r
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ConflictResponse is returned with 409 when a ranked insert targets a
// stale snapshot.
type ConflictResponse struct {
	Error       string      `json:"error"`
	Fingerprint string      `json:"fingerprint"`
	Items       []item.Item `json:"items"`
}

// CreateItemRequest is the body of POST /lists/:list/items. Key is a
// decimal string; without it the item goes to the bottom.
type CreateItemRequest struct {
	Title string   `json:"title"`
	Key   *key.Key `json:"key,omitempty"`
}

// InsertRankedRequest is the body of POST /lists/:list/items/ranked.
type InsertRankedRequest struct {
	Title       string `json:"title"`
	Index       *int   `json:"index"`
	Fingerprint string `json:"fingerprint"`
}

// ListItems handles GET /lists/:list/items
func (h *Handler) ListItems(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	page, err := h.engine.List(c.Request.Context(), c.Param("list"), c.Query("cursor"), limit)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Snapshot handles GET /lists/:list/snapshot
func (h *Handler) Snapshot(c *gin.Context) {
	snap, err := h.engine.Snapshot(c.Request.Context(), c.Param("list"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// CreateItem handles POST /lists/:list/items
func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	it, err := h.engine.Create(c.Request.Context(), c.Param("list"), req.Title, req.Key)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// InsertRanked handles POST /lists/:list/items/ranked
func (h *Handler) InsertRanked(c *gin.Context) {
	var req InsertRankedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Index == nil {
		h.fail(c, http.StatusBadRequest, "index is required")
		return
	}
	if req.Fingerprint == "" {
		h.fail(c, http.StatusBadRequest, "fingerprint is required")
		return
	}

	out, err := h.engine.InsertAt(c.Request.Context(), c.Param("list"), req.Title, *req.Index, req.Fingerprint)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if out.Status == engine.OutcomeConflict {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:       "list changed since the snapshot",
			Fingerprint: out.Conflict.Fingerprint,
			Items:       out.Conflict.Fresh,
		})
		return
	}
	c.JSON(http.StatusCreated, out.Item)
}

// MoveItem handles PUT /lists/:list/items/:id/position
func (h *Handler) MoveItem(c *gin.Context) {
	var pos engine.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := h.engine.Move(c.Request.Context(), c.Param("list"), c.Param("id"), pos)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Item)
}

// DeleteItem handles DELETE /lists/:list/items/:id
func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.engine.Delete(c.Request.Context(), c.Param("list"), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Rebalance handles POST /lists/:list/rebalance
func (h *Handler) Rebalance(c *gin.Context) {
	res, err := h.engine.Rebalance(c.Request.Context(), c.Param("list"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// failErr maps engine errors onto status codes.
func (h *Handler) failErr(c *gin.Context, err error) {
	var ee *engine.Error
	switch {
	case engine.IsNotFound(err):
		h.fail(c, http.StatusNotFound, err.Error())
	case engine.IsInvalidArgument(err):
		h.fail(c, http.StatusBadRequest, err.Error())
	case engine.IsPrecisionExhausted(err):
		h.fail(c, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &ee):
		h.fail(c, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		h.fail(c, http.StatusInternalServerError, "internal error")
	}
}
