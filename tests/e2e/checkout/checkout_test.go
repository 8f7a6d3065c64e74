//go:build e2e

package checkout_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"keyshop/internal/handler/dto/response"
	"keyshop/tests/common/dbtest"
	"keyshop/tests/common/httptest"
	"keyshop/tests/e2e"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	checkoutURL       = "/api/checkout"
	cancelURL         = "/api/checkout/%s/cancel"
	extendURL         = "/api/checkout/%s/extend"
	paymentWebhookURL = "/api/webhooks/payment"
	stockURL          = "/api/stock/%s"
)

type CheckoutSuite struct {
	e2e.SharedSuite
}

func TestCheckoutSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(CheckoutSuite))
}

func (s *CheckoutSuite) createOrder(itemID uuid.UUID, quantity int) uuid.UUID {
	t := s.T()

	w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, checkoutURL, gin.H{
		"reference": "ORD-E2E",
		"lines":     []gin.H{{"stock_item_id": itemID, "quantity": quantity}},
	})

	var created response.CheckoutResponse
	httptest.AssertSuccessResponse(t, w, http.StatusCreated, &created)
	require.NotEqual(t, uuid.Nil, created.OrderID)
	return created.OrderID
}

func (s *CheckoutSuite) TestCreateCheckout() {
	s.Run("reserving decrements stock and records the hold", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-001", 10)
		orderID := s.createOrder(itemID, 3)

		require.Equal(t, 7, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
		require.Equal(t, "reserved", dbtest.ReservationStatus(t, s.Env.Pool, orderID, itemID))
	})

	s.Run("insufficient stock returns 409 and rolls everything back", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-002", 1)

		w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, checkoutURL, gin.H{
			"reference": "ORD-E2E-FAIL",
			"lines":     []gin.H{{"stock_item_id": itemID, "quantity": 2}},
		})
		httptest.AssertErrorResponse(t, w, http.StatusConflict, "Insufficient stock")

		require.Equal(t, 1, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))

		var count int
		err := s.Env.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM orders").Scan(&count)
		require.NoError(t, err)
		require.Zero(t, count, "order row must not survive a failed reservation")
	})

	s.Run("stock view reflects the reservation", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-003", 10)
		s.createOrder(itemID, 4)

		w := httptest.PerformRequest(t, s.Env.Router, http.MethodGet, fmt.Sprintf(stockURL, itemID), nil)
		var view response.StockResponse
		httptest.AssertSuccessResponse(t, w, http.StatusOK, &view)

		require.Equal(t, 6, view.AvailableQuantity)
		require.Equal(t, 4, view.ReservedQuantity)
	})
}

func (s *CheckoutSuite) TestCancelCheckout() {
	s.Run("cancel restores stock and releases the hold", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-010", 10)
		orderID := s.createOrder(itemID, 3)

		w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, fmt.Sprintf(cancelURL, orderID), nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		require.Equal(t, 10, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
		require.Equal(t, "released", dbtest.ReservationStatus(t, s.Env.Pool, orderID, itemID))
	})

	s.Run("cancel twice leaves the stock level unchanged", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-011", 10)
		orderID := s.createOrder(itemID, 3)

		for range 2 {
			w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, fmt.Sprintf(cancelURL, orderID), nil)
			require.Equal(t, http.StatusNoContent, w.Code)
		}

		require.Equal(t, 10, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
	})

	s.Run("unknown order returns 404", func() {
		t := s.T()

		w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, fmt.Sprintf(cancelURL, uuid.New()), nil)
		httptest.AssertErrorResponse(t, w, http.StatusNotFound, "Order not found")
	})
}

func (s *CheckoutSuite) TestPaymentFlow() {
	s.Run("payment confirmation finalizes the hold for good", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-020", 10)
		orderID := s.createOrder(itemID, 3)

		w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, paymentWebhookURL, gin.H{
			"order_id": orderID,
			"event":    "payment.confirmed",
		})
		require.Equal(t, http.StatusOK, w.Code)

		require.Equal(t, 7, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
		require.Equal(t, "finalized", dbtest.ReservationStatus(t, s.Env.Pool, orderID, itemID))

		// A finalized hold survives the expiry sweep
		dbtest.BackdateReservation(t, s.Env.Pool, orderID, time.Hour)
		released, err := s.Env.Reservations.ReleaseExpiredReservations(context.Background())
		require.NoError(t, err)
		require.Zero(t, released)
		require.Equal(t, 7, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
	})

	s.Run("webhook redelivery is acknowledged without side effects", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-021", 10)
		orderID := s.createOrder(itemID, 3)

		for range 2 {
			w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, paymentWebhookURL, gin.H{
				"order_id": orderID,
				"event":    "payment.confirmed",
			})
			require.Equal(t, http.StatusOK, w.Code)
		}

		require.Equal(t, 7, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
	})
}

func (s *CheckoutSuite) TestExpirySweep() {
	s.Run("expired holds are released by the sweep", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-030", 10)
		orderID := s.createOrder(itemID, 4)

		dbtest.BackdateReservation(t, s.Env.Pool, orderID, time.Minute)

		released, err := s.Env.Reservations.ReleaseExpiredReservations(context.Background())
		require.NoError(t, err)
		require.Equal(t, int64(1), released)

		require.Equal(t, 10, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
		require.Equal(t, "released", dbtest.ReservationStatus(t, s.Env.Pool, orderID, itemID))

		// Second sweep finds nothing
		released, err = s.Env.Reservations.ReleaseExpiredReservations(context.Background())
		require.NoError(t, err)
		require.Zero(t, released)
	})

	s.Run("extend keeps the hold out of the sweep's reach", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-031", 10)
		orderID := s.createOrder(itemID, 4)

		w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, fmt.Sprintf(extendURL, orderID), nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		released, err := s.Env.Reservations.ReleaseExpiredReservations(context.Background())
		require.NoError(t, err)
		require.Zero(t, released)
		require.Equal(t, 6, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
	})
}

func (s *CheckoutSuite) TestConcurrentCheckout() {
	s.Run("two buyers racing for the last unit produce one winner", func() {
		t := s.T()

		itemID := dbtest.CreateStockItem(t, s.Env.Pool, "SKU-E2E-040", 1)

		results := make(chan int, 2)
		for range 2 {
			go func() {
				w := httptest.PerformRequest(t, s.Env.Router, http.MethodPost, checkoutURL, gin.H{
					"reference": "ORD-RACE",
					"lines":     []gin.H{{"stock_item_id": itemID, "quantity": 1}},
				})
				results <- w.Code
			}()
		}

		codes := map[int]int{}
		for range 2 {
			codes[<-results]++
		}

		require.Equal(t, 1, codes[http.StatusCreated], "exactly one checkout must win")
		require.Equal(t, 1, codes[http.StatusConflict], "the loser must get a conflict")
		require.Equal(t, 0, dbtest.AvailableQuantity(t, s.Env.Pool, itemID))
	})
}
