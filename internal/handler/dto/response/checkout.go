package response

import "github.com/google/uuid"

type CheckoutResponse struct {
	OrderID uuid.UUID `json:"order_id"`
}
