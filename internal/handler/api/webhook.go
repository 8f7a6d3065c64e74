package api

import (
	"errors"
	"net/http"

	"keyshop/internal/handler/dto/request"
	"keyshop/internal/handler/httperr"
	"keyshop/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const paymentEventConfirmed = "payment.confirmed"

type WebhookHandler struct {
	checkout commands.CheckoutCommands
}

func NewWebhookHandler(checkout commands.CheckoutCommands) *WebhookHandler {
	return &WebhookHandler{checkout: checkout}
}

// POST /api/webhooks/payment
//
// Providers redeliver webhooks, so a repeated confirmation returns 200
// just like the first delivery.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	var req request.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	if req.Event != paymentEventConfirmed {
		// Acknowledge unknown events so the provider stops retrying them.
		c.Status(http.StatusOK)
		return
	}

	if err := h.checkout.HandlePaymentConfirmed(c.Request.Context(), req.OrderID); err != nil {
		switch {
		case errors.Is(err, commands.ErrOrderNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Order not found", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusOK)
}
