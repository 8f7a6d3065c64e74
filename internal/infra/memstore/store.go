// Package memstore is an in-memory implementation of the persistence
// contract used by the reservation subsystem. It is a real implementation,
// not a stub: the conditional decrement is enforced exactly like the SQL
// version, and Within gives copy-on-write transactions serialized by a
// single mutex, so concurrency tests exercise the same guarantees the
// Postgres unit of work provides.
package memstore

import (
	"context"
	"sync"
	"time"

	"keyshop/internal/domain/order"
	"keyshop/internal/domain/reservation"
	"keyshop/internal/domain/stock"
	"keyshop/internal/infra"
	"keyshop/internal/usecase/shared"

	"github.com/google/uuid"
)

type itemRow struct {
	id        uuid.UUID
	sku       string
	name      string
	available int
	createdAt time.Time
	updatedAt time.Time
}

type resKey struct {
	orderID     uuid.UUID
	stockItemID uuid.UUID
}

type resRow struct {
	id            uuid.UUID
	orderID       uuid.UUID
	stockItemID   uuid.UUID
	quantity      int
	status        reservation.Status
	reservedUntil time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

type orderRow struct {
	id        uuid.UUID
	reference string
	status    order.Status
	createdAt time.Time
	updatedAt time.Time
}

type state struct {
	items        map[uuid.UUID]itemRow
	reservations map[resKey]resRow
	orders       map[uuid.UUID]orderRow
}

func (s *state) clone() *state {
	next := &state{
		items:        make(map[uuid.UUID]itemRow, len(s.items)),
		reservations: make(map[resKey]resRow, len(s.reservations)),
		orders:       make(map[uuid.UUID]orderRow, len(s.orders)),
	}
	for k, v := range s.items {
		next.items[k] = v
	}
	for k, v := range s.reservations {
		next.reservations[k] = v
	}
	for k, v := range s.orders {
		next.orders[k] = v
	}
	return next
}

type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{
		state: &state{
			items:        make(map[uuid.UUID]itemRow),
			reservations: make(map[resKey]resRow),
			orders:       make(map[uuid.UUID]orderRow),
		},
	}
}

// Within runs fn against a staged copy of the store. The mutex is held for
// the whole call: transactions are fully serialized, the in-memory analogue
// of row locks plus serializable isolation. On error the staged copy is
// discarded and nothing is observable, matching rollback semantics.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	tx := &memTx{state: staged}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = staged
	return nil
}

// SeedItem installs a stock item outside any transaction. Test setup only.
func (s *Store) SeedItem(item *stock.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.items[item.ID()] = itemRow{
		id:        item.ID(),
		sku:       item.SKU(),
		name:      item.Name(),
		available: item.AvailableQuantity(),
		createdAt: item.CreatedAt(),
		updatedAt: item.UpdatedAt(),
	}
}

// AvailableQuantity reads the current counter value for assertions.
func (s *Store) AvailableQuantity(itemID uuid.UUID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.items[itemID]
	return row.available, ok
}

// ReservedQuantity sums the quantity of all reserved rows for one item:
// the ledger side of the conservation invariant.
func (s *Store) ReservedQuantity(itemID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, row := range s.state.reservations {
		if row.stockItemID == itemID && row.status == reservation.StatusReserved {
			total += row.quantity
		}
	}
	return total
}

// ReservationSnapshot returns the current ledger row for one pair, if any.
func (s *Store) ReservationSnapshot(orderID, itemID uuid.UUID) (*reservation.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.reservations[resKey{orderID: orderID, stockItemID: itemID}]
	if !ok {
		return nil, false
	}
	return row.toDomain(), true
}

// OrderStatus reads an order's status for assertions.
func (s *Store) OrderStatus(orderID uuid.UUID) (order.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.orders[orderID]
	return row.status, ok
}

type memTx struct {
	state *state
}

func (t *memTx) Stock() shared.StockRepository              { return &stockRepo{state: t.state} }
func (t *memTx) Reservations() shared.ReservationRepository { return &reservationRepo{state: t.state} }
func (t *memTx) Orders() shared.OrderRepository             { return &orderRepo{state: t.state} }

type stockRepo struct {
	state *state
}

func (r *stockRepo) TryDecrement(_ context.Context, itemID uuid.UUID, quantity int, now time.Time) (bool, error) {
	row, ok := r.state.items[itemID]
	if !ok || row.available < quantity {
		return false, nil
	}
	row.available -= quantity
	row.updatedAt = now
	r.state.items[itemID] = row
	return true, nil
}

func (r *stockRepo) Increment(_ context.Context, itemID uuid.UUID, quantity int, now time.Time) error {
	row, ok := r.state.items[itemID]
	if !ok {
		return infra.WrapRepoErr(infra.KindNotFound, "stock item not found", nil)
	}
	row.available += quantity
	row.updatedAt = now
	r.state.items[itemID] = row
	return nil
}

type reservationRepo struct {
	state *state
}

func (r *reservationRepo) FindForUpdate(_ context.Context, orderID, stockItemID uuid.UUID) (*reservation.Record, error) {
	row, ok := r.state.reservations[resKey{orderID: orderID, stockItemID: stockItemID}]
	if !ok {
		return nil, infra.WrapRepoErr(infra.KindNotFound, "reservation not found", nil)
	}
	return row.toDomain(), nil
}

func (r *reservationRepo) FindReservedByOrderForUpdate(_ context.Context, orderID uuid.UUID) ([]*reservation.Record, error) {
	var recs []*reservation.Record
	for _, row := range r.state.reservations {
		if row.orderID == orderID && row.status == reservation.StatusReserved {
			recs = append(recs, row.toDomain())
		}
	}
	return recs, nil
}

func (r *reservationRepo) FindExpiredForUpdate(_ context.Context, now time.Time) ([]*reservation.Record, error) {
	var recs []*reservation.Record
	for _, row := range r.state.reservations {
		if row.status == reservation.StatusReserved && row.reservedUntil.Before(now) && row.quantity > 0 {
			recs = append(recs, row.toDomain())
		}
	}
	return recs, nil
}

func (r *reservationRepo) Insert(_ context.Context, rec *reservation.Record) error {
	key := resKey{orderID: rec.OrderID(), stockItemID: rec.StockItemID()}
	if _, exists := r.state.reservations[key]; exists {
		return infra.WrapRepoErr(infra.KindDuplicateKey, "reservation already exists", nil)
	}
	r.state.reservations[key] = fromDomain(rec)
	return nil
}

func (r *reservationRepo) Update(_ context.Context, rec *reservation.Record) error {
	key := resKey{orderID: rec.OrderID(), stockItemID: rec.StockItemID()}
	if _, exists := r.state.reservations[key]; !exists {
		return infra.WrapRepoErr(infra.KindNotFound, "reservation not found", nil)
	}
	r.state.reservations[key] = fromDomain(rec)
	return nil
}

func (r *reservationRepo) ExtendReserved(_ context.Context, orderID uuid.UUID, reservedUntil, now time.Time) (int64, error) {
	var affected int64
	for key, row := range r.state.reservations {
		if row.orderID == orderID && row.status == reservation.StatusReserved {
			row.reservedUntil = reservedUntil
			row.updatedAt = now
			r.state.reservations[key] = row
			affected++
		}
	}
	return affected, nil
}

func (r *reservationRepo) FinalizeReserved(_ context.Context, orderID uuid.UUID, now time.Time) (int64, error) {
	var affected int64
	for key, row := range r.state.reservations {
		if row.orderID == orderID && row.status == reservation.StatusReserved {
			row.status = reservation.StatusFinalized
			row.updatedAt = now
			r.state.reservations[key] = row
			affected++
		}
	}
	return affected, nil
}

type orderRepo struct {
	state *state
}

func (r *orderRepo) Insert(_ context.Context, o *order.Order) error {
	if _, exists := r.state.orders[o.ID()]; exists {
		return infra.WrapRepoErr(infra.KindDuplicateKey, "order already exists", nil)
	}
	r.state.orders[o.ID()] = orderRow{
		id:        o.ID(),
		reference: o.Reference(),
		status:    o.Status(),
		createdAt: o.CreatedAt(),
		updatedAt: o.UpdatedAt(),
	}
	return nil
}

func (r *orderRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*order.Order, error) {
	row, ok := r.state.orders[id]
	if !ok {
		return nil, infra.WrapRepoErr(infra.KindNotFound, "order not found", nil)
	}
	return order.ReconstructOrder(row.id, row.reference, row.status, row.createdAt, row.updatedAt), nil
}

func (r *orderRepo) Update(_ context.Context, o *order.Order) error {
	if _, exists := r.state.orders[o.ID()]; !exists {
		return infra.WrapRepoErr(infra.KindNotFound, "order not found", nil)
	}
	r.state.orders[o.ID()] = orderRow{
		id:        o.ID(),
		reference: o.Reference(),
		status:    o.Status(),
		createdAt: o.CreatedAt(),
		updatedAt: o.UpdatedAt(),
	}
	return nil
}

func (row resRow) toDomain() *reservation.Record {
	return reservation.ReconstructRecord(
		row.id, row.orderID, row.stockItemID,
		row.quantity,
		row.status,
		row.reservedUntil,
		row.createdAt, row.updatedAt,
	)
}

func fromDomain(rec *reservation.Record) resRow {
	return resRow{
		id:            rec.ID(),
		orderID:       rec.OrderID(),
		stockItemID:   rec.StockItemID(),
		quantity:      rec.Quantity(),
		status:        rec.Status(),
		reservedUntil: rec.ReservedUntil(),
		createdAt:     rec.CreatedAt(),
		updatedAt:     rec.UpdatedAt(),
	}
}
