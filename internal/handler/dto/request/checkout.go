package request

import (
	"keyshop/internal/domain/stock"

	"github.com/google/uuid"
)

type CheckoutLine struct {
	StockItemID uuid.UUID `json:"stock_item_id" binding:"required"`
	Quantity    int       `json:"quantity"`
}

type CreateCheckoutRequest struct {
	Reference string         `json:"reference" binding:"required"`
	Lines     []CheckoutLine `json:"lines" binding:"required,min=1"`
}

func (r CreateCheckoutRequest) ToLines() []stock.Line {
	lines := make([]stock.Line, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = stock.Line{
			StockItemID: l.StockItemID,
			Quantity:    l.Quantity,
		}
	}
	return lines
}

type PaymentWebhookRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
	Event   string    `json:"event" binding:"required"`
}
