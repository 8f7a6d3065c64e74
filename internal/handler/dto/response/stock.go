package response

import (
	"time"

	"keyshop/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type StockResponse struct {
	ID                uuid.UUID `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	AvailableQuantity int       `json:"available_quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func FromStockView(view *queries.StockView) *StockResponse {
	var resp StockResponse
	_ = copier.Copy(&resp, view)
	return &resp
}

func FromStockViews(views []*queries.StockView) []*StockResponse {
	resp := make([]*StockResponse, len(views))
	for i, v := range views {
		resp[i] = FromStockView(v)
	}
	return resp
}
