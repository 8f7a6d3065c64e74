package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyPaid     = errors.New("order is already paid")
	ErrAlreadyCanceled = errors.New("order is already canceled")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
)

func (s Status) String() string { return string(s) }

// Order is the checkout workflow's aggregate. The reservation ledger only
// sees its ID; order state itself never drives stock mutation.
type Order struct {
	id        uuid.UUID
	reference string
	status    Status
	createdAt time.Time
	updatedAt time.Time
}

func NewOrder(reference string, now time.Time) *Order {
	return &Order{
		id:        uuid.New(),
		reference: reference,
		status:    StatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

func ReconstructOrder(id uuid.UUID, reference string, status Status, createdAt, updatedAt time.Time) *Order {
	return &Order{
		id:        id,
		reference: reference,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (o *Order) ID() uuid.UUID        { return o.id }
func (o *Order) Reference() string    { return o.reference }
func (o *Order) Status() Status       { return o.status }
func (o *Order) CreatedAt() time.Time { return o.createdAt }
func (o *Order) UpdatedAt() time.Time { return o.updatedAt }

func (o *Order) MarkPaid(now time.Time) error {
	switch o.status {
	case StatusPaid:
		return ErrAlreadyPaid
	case StatusCanceled:
		return ErrAlreadyCanceled
	}
	o.status = StatusPaid
	o.updatedAt = now
	return nil
}

func (o *Order) Cancel(now time.Time) error {
	switch o.status {
	case StatusPaid:
		return ErrAlreadyPaid
	case StatusCanceled:
		return ErrAlreadyCanceled
	}
	o.status = StatusCanceled
	o.updatedAt = now
	return nil
}
