package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wisdom-empire/internal/content"
	"wisdom-empire/internal/models"
)

type ContentHandler struct {
	Store  *content.Store
	Logger *zap.Logger
}

func NewContentHandler(store *content.Store, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{Store: store, Logger: logger}
}

func (h *ContentHandler) List(c *gin.Context) {
	category := models.ContentCategory(c.Param("category"))
	if !category.Valid() {
		failure(c, http.StatusNotFound, "Unknown category.")
		return
	}
	page, size := pagination(c)

	items, total, err := h.Store.Search(c.Request.Context(), category, c.Query("q"), size, (page-1)*size)
	if err != nil {
		h.Logger.Error("failed to search content", zap.String("category", string(category)), zap.Error(err))
		failure(c, http.StatusInternalServerError, "Could not fetch content.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"items":     items,
		"page":      page,
		"page_size": size,
		"total":     total,
	})
}

func (h *ContentHandler) Get(c *gin.Context) {
	category := models.ContentCategory(c.Param("category"))
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		failure(c, http.StatusNotFound, "Item not found.")
		return
	}

	item, err := h.Store.Get(c.Request.Context(), id)
	if errors.Is(err, content.ErrNotFound) || (err == nil && item.Category != category) {
		failure(c, http.StatusNotFound, "Item not found.")
		return
	}
	if err != nil {
		h.Logger.Error("failed to get content item", zap.Int64("id", id), zap.Error(err))
		failure(c, http.StatusInternalServerError, "Could not fetch content.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}
