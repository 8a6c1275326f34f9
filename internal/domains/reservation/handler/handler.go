package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	itemmodel "flashsale-backend/internal/domains/item/model"
	"flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/internal/domains/reservation/service"
	"flashsale-backend/internal/shared/middleware"
	"flashsale-backend/internal/shared/response"
	"flashsale-backend/pkg/cache"
	"flashsale-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// SweepTrigger enqueues a manual sweep pass for the worker.
type SweepTrigger interface {
	EnqueueSweepTick(ctx context.Context, manual bool) error
}

// Handler exposes the reservation lifecycle over HTTP.
type Handler struct {
	service        service.ServiceInterface
	sweep          SweepTrigger
	kv             cache.Cache
	unhealthyAfter time.Duration
}

func NewHandler(svc service.ServiceInterface, sweep SweepTrigger, kv cache.Cache, unhealthyAfter time.Duration) *Handler {
	return &Handler{service: svc, sweep: sweep, kv: kv, unhealthyAfter: unhealthyAfter}
}

// CreateReservation handles POST /api/v1/reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req model.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	res, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, res)
}

// GetReservation handles GET /api/v1/reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation id")
		return
	}

	isAdmin := c.GetString("role") == "admin"
	res, err := h.service.Get(c.Request.Context(), userID, isAdmin, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// ListReservations handles GET /api/v1/reservations
func (h *Handler) ListReservations(c *gin.Context) {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req model.ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	req.Normalize()

	reservations, total, err := h.service.ListMine(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, reservations, &response.Meta{
		Page:  req.Page,
		Limit: req.Limit,
		Total: total,
	})
}

// ConfirmReservation handles POST /api/v1/reservations/:id/confirm
func (h *Handler) ConfirmReservation(c *gin.Context) {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation id")
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// CancelReservation handles POST /api/v1/reservations/:id/cancel
func (h *Handler) CancelReservation(c *gin.Context) {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation id")
		return
	}

	var req model.CancelReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	res, err := h.service.Cancel(c.Request.Context(), userID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// MyStats handles GET /api/v1/reservations/stats
func (h *Handler) MyStats(c *gin.Context) {
	userID, err := middleware.MustUserID(c)
	if err != nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), &userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// AdminListReservations handles GET /api/v1/admin/reservations
func (h *Handler) AdminListReservations(c *gin.Context) {
	var req model.ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	req.Normalize()

	reservations, total, err := h.service.AdminList(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, reservations, &response.Meta{
		Page:  req.Page,
		Limit: req.Limit,
		Total: total,
	})
}

// AdminCancelReservation handles POST /api/v1/admin/reservations/:id/cancel
func (h *Handler) AdminCancelReservation(c *gin.Context) {
	adminID, err := middleware.MustUserID(c)
	if err != nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid reservation id")
		return
	}

	var req model.CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	res, err := h.service.AdminCancel(c.Request.Context(), adminID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	logger.Info("reservation cancelled by admin", map[string]interface{}{
		"reservation_id": id.String(),
		"admin_id":       adminID.String(),
		"reason":         req.Reason,
	})

	response.Success(c, http.StatusOK, res)
}

// AdminStats handles GET /api/v1/admin/reservations/stats
func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), nil)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// TriggerSweep handles POST /api/v1/admin/sweeper/trigger
func (h *Handler) TriggerSweep(c *gin.Context) {
	if err := h.sweep.EnqueueSweepTick(c.Request.Context(), true); err != nil {
		logger.Error("failed to enqueue manual sweep", err)
		response.ServiceUnavailable(c, "Could not schedule sweep")
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"triggered": true})
}

// SweeperHealth handles GET /health/sweeper
func (h *Handler) SweeperHealth(c *gin.Context) {
	health := service.Health(c.Request.Context(), h.kv, h.unhealthyAfter, time.Now())

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"success": health.Status != "unhealthy", "data": health})
}

// SweeperStats handles GET /api/v1/admin/sweeper/stats
func (h *Handler) SweeperStats(c *gin.Context) {
	status, found, err := service.StatusSnapshot(c.Request.Context(), h.kv)
	if err != nil {
		logger.Error("failed to read sweeper status", err)
		response.ServiceUnavailable(c, "Sweeper status unavailable")
		return
	}
	if !found {
		response.NotFound(c, "No sweep pass recorded yet")
		return
	}

	response.Success(c, http.StatusOK, status)
}

// ResetSweeperStats handles POST /api/v1/admin/sweeper/stats/reset
func (h *Handler) ResetSweeperStats(c *gin.Context) {
	if err := service.ResetStatus(c.Request.Context(), h.kv); err != nil {
		logger.Error("failed to reset sweeper status", err)
		response.ServiceUnavailable(c, "Could not reset sweeper stats")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		response.UnprocessableEntity(c, "Validation failed", verrs)
		return
	}

	switch {
	case errors.Is(err, model.ErrReservationNotFound):
		response.NotFound(c, "Reservation not found")
	case errors.Is(err, itemmodel.ErrItemNotFound):
		response.NotFound(c, "Item not found")
	case errors.Is(err, model.ErrNotOwner):
		response.Forbidden(c, "Reservation belongs to another user")
	case errors.Is(err, model.ErrNotPending):
		response.Conflict(c, model.ErrCodeNotPending, "Reservation is no longer pending")
	case errors.Is(err, model.ErrReservationExpired):
		response.Conflict(c, model.ErrCodeExpired, "Reservation has expired")
	case errors.Is(err, model.ErrMaxPerUserExceeded):
		response.Conflict(c, model.ErrCodeMaxPerUser, "Per-user quantity limit exceeded for this item")
	case errors.Is(err, itemmodel.ErrItemInactive):
		response.Conflict(c, itemmodel.ErrCodeItemInactive, "Item is not available for reservation")
	case errors.Is(err, itemmodel.ErrInsufficientStock):
		response.Conflict(c, itemmodel.ErrCodeInsufficientStock, "Not enough stock available")
	case errors.Is(err, model.ErrCodeExhausted):
		logger.Error("reservation code space exhausted", err)
		response.ServiceUnavailable(c, "Could not allocate a reservation code, try again")
	default:
		logger.Error("reservation handler error", err)
		response.InternalError(c)
	}
}
