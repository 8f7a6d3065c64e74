package queries

import (
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type StockView struct {
	ID                uuid.UUID `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	AvailableQuantity int       `json:"available_quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}
