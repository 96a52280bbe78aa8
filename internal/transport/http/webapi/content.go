package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vetrina-server-go/internal/domain/content"
	"vetrina-server-go/internal/platform/logging"
)

// ContentHandler serves the public read path through the cache and the admin
// write path straight against the service.
type ContentHandler struct {
	service *content.Service
	cache   *content.Cache
	logger  *logging.Logger
}

func NewContentHandler(service *content.Service, cache *content.Cache, logger *logging.Logger) *ContentHandler {
	return &ContentHandler{service: service, cache: cache, logger: logger}
}

// GetContent returns every section plus the ordered catalog, cached.
func (h *ContentHandler) GetContent(c *gin.Context) {
	payload, err := h.cache.GetOrLoad(c.Request.Context(), content.SlotFull, func(ctx context.Context) (interface{}, error) {
		return h.service.FullPayload(ctx)
	})
	if err != nil {
		h.logger.Error("content read failed: %v", err)
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, json.RawMessage(payload))
}

// GetProducts returns the catalog only, cached.
func (h *ContentHandler) GetProducts(c *gin.Context) {
	payload, err := h.cache.GetOrLoad(c.Request.Context(), content.SlotItems, func(ctx context.Context) (interface{}, error) {
		return h.service.ItemsPayload(ctx)
	})
	if err != nil {
		h.logger.Error("catalog read failed: %v", err)
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, json.RawMessage(payload))
}

// GetProduct is the uncached point read by slug.
func (h *ContentHandler) GetProduct(c *gin.Context) {
	item, err := h.service.ItemBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, item)
}

// UpdateSection upserts one content section.
func (h *ContentHandler) UpdateSection(c *gin.Context) {
	var doc map[string]interface{}
	if err := c.ShouldBindJSON(&doc); err != nil {
		RespondError(c, http.StatusBadRequest, "malformed section body")
		return
	}
	if err := h.service.UpsertSection(c.Request.Context(), c.Param("key"), doc); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"key": c.Param("key")})
}

type productRequest struct {
	Slug string                 `json:"slug"`
	Data map[string]interface{} `json:"data"`
}

// CreateProduct appends a catalog item.
func (h *ContentHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "malformed product body")
		return
	}
	item, err := h.service.CreateItem(c.Request.Context(), req.Slug, req.Data)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusCreated, item)
}

// UpdateProduct replaces an item's document and optionally its slug.
func (h *ContentHandler) UpdateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "malformed product body")
		return
	}
	item, err := h.service.UpdateItem(c.Request.Context(), id, req.Slug, req.Data)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, item)
}

// DeleteProduct removes an item.
func (h *ContentHandler) DeleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.service.DeleteItem(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"deleted": id})
}

type reorderRequest struct {
	IDs []uint `json:"ids"`
}

// Reorder rewrites the whole catalog order atomically.
func (h *ContentHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "malformed reorder body")
		return
	}
	if err := h.service.Reorder(c.Request.Context(), req.IDs); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"reordered": len(req.IDs)})
}

// Reset wipes all content and reseeds the defaults.
func (h *ContentHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, http.StatusOK, gin.H{"reset": true})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	return uint(id), err
}
