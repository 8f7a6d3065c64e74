package api

import (
	"errors"
	"net/http"

	"keyshop/internal/handler/dto/request"
	"keyshop/internal/handler/dto/response"
	"keyshop/internal/handler/httperr"
	"keyshop/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	checkout commands.CheckoutCommands
}

func NewCheckoutHandler(checkout commands.CheckoutCommands) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// POST /api/checkout
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req request.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	orderID, err := h.checkout.CreateOrder(c.Request.Context(), req.Reference, req.ToLines())
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrInsufficientStock):
			httperr.AbortWithError(c, http.StatusConflict, err, "Insufficient stock", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, response.CheckoutResponse{OrderID: orderID})
}

// POST /api/checkout/:id/cancel
func (h *CheckoutHandler) CancelCheckout(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := h.checkout.CancelOrder(c.Request.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, commands.ErrOrderNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Order not found", nil)
		case errors.Is(err, commands.ErrOrderAlreadyPaid):
			httperr.AbortWithError(c, http.StatusConflict, err, "Order is already paid", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// POST /api/checkout/:id/extend
func (h *CheckoutHandler) ExtendCheckout(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := h.checkout.ExtendCheckout(c.Request.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, commands.ErrNoActiveReservation):
			httperr.AbortWithError(c, http.StatusConflict, err, "No active reservation to extend", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid order ID format", nil)
		return uuid.Nil, false
	}
	return orderID, true
}
