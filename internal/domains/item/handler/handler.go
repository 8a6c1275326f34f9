package handler

import (
	"errors"
	"io"
	"net/http"

	"flashsale-backend/internal/domains/item/model"
	"flashsale-backend/internal/domains/item/service"
	"flashsale-backend/internal/shared/response"
	"flashsale-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const maxImageSize = 5 << 20 // 5 MiB

// Handler exposes the item catalog over HTTP. Read endpoints are public,
// write endpoints sit behind the admin middleware.
type Handler struct {
	service    service.ServiceInterface
	accountant *service.StockAccountant
}

func NewHandler(svc service.ServiceInterface, accountant *service.StockAccountant) *Handler {
	return &Handler{service: svc, accountant: accountant}
}

// ListItems handles GET /api/v1/items
func (h *Handler) ListItems(c *gin.Context) {
	var req model.ListItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	req.Normalize()

	items, total, err := h.service.ListItems(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Page:  req.Page,
		Limit: req.Limit,
		Total: total,
	})
}

// GetItem handles GET /api/v1/items/:id
func (h *Handler) GetItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item id")
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, item)
}

// CreateItem handles POST /api/v1/admin/items
func (h *Handler) CreateItem(c *gin.Context) {
	var req model.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/v1/admin/items/:id
func (h *Handler) UpdateItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item id")
		return
	}

	var req model.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/admin/items/:id
func (h *Handler) DeleteItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item id")
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// AdjustStock handles POST /api/v1/admin/items/:id/stock
func (h *Handler) AdjustStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item id")
		return
	}

	var req model.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	item, err := h.service.AdjustStock(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	logger.Info("stock adjusted", map[string]interface{}{
		"item_id": id.String(),
		"delta":   req.Delta,
		"reason":  req.Reason,
	})

	response.Success(c, http.StatusOK, item)
}

// UploadImage handles POST /api/v1/admin/items/:id/image
func (h *Handler) UploadImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid item id")
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.BadRequest(c, "Image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		response.UnprocessableEntity(c, "Image exceeds the 5MB limit", nil)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		response.InternalError(c)
		return
	}

	contentType := header.Header.Get("Content-Type")
	url, err := h.service.UploadImage(c.Request.Context(), id, data, contentType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"image_url": url})
}

// ItemStats handles GET /api/v1/admin/items/stats
func (h *Handler) ItemStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// StockAudit handles GET /api/v1/admin/stock/audit
func (h *Handler) StockAudit(c *gin.Context) {
	drifted, err := h.accountant.Audit(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"drifted": drifted,
		"count":   len(drifted),
	})
}

// StockRepair handles POST /api/v1/admin/stock/repair
func (h *Handler) StockRepair(c *gin.Context) {
	repaired, err := h.accountant.Repair(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	logger.Info("stock repair executed", map[string]interface{}{"repaired": repaired})

	response.Success(c, http.StatusOK, gin.H{"repaired": repaired})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		response.UnprocessableEntity(c, "Validation failed", verrs)
		return
	}

	switch {
	case errors.Is(err, model.ErrItemNotFound):
		response.NotFound(c, "Item not found")
	case errors.Is(err, model.ErrSKUExists):
		response.Conflict(c, model.ErrCodeSKUExists, "An item with this SKU already exists")
	case errors.Is(err, model.ErrVersionMismatch):
		response.Conflict(c, model.ErrCodeVersionMismatch, "Item was modified by another request, retry with the latest version")
	case errors.Is(err, model.ErrItemHasHolds):
		response.Conflict(c, model.ErrCodeItemHasHolds, "Item has pending reservations and cannot be deleted")
	case errors.Is(err, model.ErrStockShortfall):
		response.UnprocessableEntity(c, "Adjustment would drop stock below the reserved count", nil)
	default:
		logger.Error("item handler error", err)
		response.InternalError(c)
	}
}
