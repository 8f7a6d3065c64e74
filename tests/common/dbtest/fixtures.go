//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateStockItem(t *testing.T, db DBLike, sku string, available int) uuid.UUID {
	t.Helper()

	itemID := uuid.New()
	ctx := context.Background()

	tag, err := db.Exec(ctx,
		"INSERT INTO stock_items (id, sku, name, available_quantity) VALUES ($1, $2, $3, $4) ON CONFLICT (sku) DO NOTHING",
		itemID, sku, "Test Item "+sku, available)
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx, "SELECT id FROM stock_items WHERE sku = $1", sku).Scan(&itemID)
	}

	return itemID
}

func AvailableQuantity(t *testing.T, db DBLike, itemID uuid.UUID) int {
	t.Helper()

	var available int
	err := db.QueryRow(context.Background(),
		"SELECT available_quantity FROM stock_items WHERE id = $1", itemID).Scan(&available)
	require.NoError(t, err)
	return available
}

func ReservationStatus(t *testing.T, db DBLike, orderID, itemID uuid.UUID) string {
	t.Helper()

	var status string
	err := db.QueryRow(context.Background(),
		"SELECT status FROM stock_reservations WHERE order_id = $1 AND stock_item_id = $2",
		orderID, itemID).Scan(&status)
	require.NoError(t, err)
	return status
}

// BackdateReservation moves a reservation's deadline into the past so the
// expiry sweep picks it up without the test having to wait.
func BackdateReservation(t *testing.T, db DBLike, orderID uuid.UUID, by time.Duration) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"UPDATE stock_reservations SET reserved_until = now() - $2::interval WHERE order_id = $1",
		orderID, by.String())
	require.NoError(t, err)
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables between tests
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}
	return nil
}
