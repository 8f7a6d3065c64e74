package stock

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNegativeQuantity = errors.New("available quantity cannot be negative")
	ErrEmptySKU         = errors.New("sku cannot be empty")
)

// Item is one purchasable unit type: a license package or an account slot.
// availableQuantity is mutated only through the reservation subsystem's
// conditional decrement / increment; nothing else touches the counter.
type Item struct {
	id                uuid.UUID
	sku               string
	name              string
	availableQuantity int
	createdAt         time.Time
	updatedAt         time.Time
}

func NewItem(sku, name string, availableQuantity int) (*Item, error) {
	if sku == "" {
		return nil, ErrEmptySKU
	}
	if availableQuantity < 0 {
		return nil, ErrNegativeQuantity
	}
	return &Item{
		id:                uuid.New(),
		sku:               sku,
		name:              name,
		availableQuantity: availableQuantity,
	}, nil
}

func ReconstructItem(
	id uuid.UUID,
	sku, name string,
	availableQuantity int,
	createdAt, updatedAt time.Time,
) *Item {
	return &Item{
		id:                id,
		sku:               sku,
		name:              name,
		availableQuantity: availableQuantity,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (i *Item) ID() uuid.UUID          { return i.id }
func (i *Item) SKU() string            { return i.sku }
func (i *Item) Name() string           { return i.name }
func (i *Item) AvailableQuantity() int { return i.availableQuantity }
func (i *Item) CreatedAt() time.Time   { return i.createdAt }
func (i *Item) UpdatedAt() time.Time   { return i.updatedAt }

func (i *Item) CanSatisfy(quantity int) bool {
	return i.availableQuantity >= quantity
}

// Line is one (stock item, quantity) pair requested by an order.
type Line struct {
	StockItemID uuid.UUID
	Quantity    int
}

// IsInert reports whether the line is skipped during reservation.
// Zero and negative quantities are treated as no-ops, not errors.
func (l Line) IsInert() bool {
	return l.Quantity <= 0
}
