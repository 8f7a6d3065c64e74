//go:build unit

package reservation_test

import (
	"testing"
	"time"

	"keyshop/internal/domain/reservation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline = baseTime.Add(20 * time.Minute)
)

func newReservedRecord(t *testing.T, quantity int) *reservation.Record {
	t.Helper()
	rec, err := reservation.NewRecord(uuid.New(), uuid.New(), quantity, deadline, baseTime)
	require.NoError(t, err)
	return rec
}

func TestNewRecord(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		rec := newReservedRecord(t, 5)

		assert.NotEqual(t, uuid.Nil, rec.ID())
		assert.Equal(t, 5, rec.Quantity())
		assert.Equal(t, reservation.StatusReserved, rec.Status())
		assert.Equal(t, deadline, rec.ReservedUntil())
		assert.Equal(t, rec.CreatedAt(), rec.UpdatedAt())
	})

	t.Run("zero quantity is allowed", func(t *testing.T) {
		rec := newReservedRecord(t, 0)
		assert.Equal(t, 0, rec.Quantity())
	})

	t.Run("negative quantity is rejected", func(t *testing.T) {
		_, err := reservation.NewRecord(uuid.New(), uuid.New(), -1, deadline, baseTime)
		assert.ErrorIs(t, err, reservation.ErrInvalidQuantity)
	})
}

func TestEffectiveQuantity(t *testing.T) {
	t.Run("reserved row holds its quantity", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		assert.Equal(t, 5, rec.EffectiveQuantity())
		assert.Equal(t, 3, rec.QuantityDiff(8))
		assert.Equal(t, -3, rec.QuantityDiff(2))
		assert.Equal(t, 0, rec.QuantityDiff(5))
	})

	t.Run("released row holds nothing", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		require.NoError(t, rec.Release(baseTime))

		assert.Equal(t, 0, rec.EffectiveQuantity())
		// Re-reserving after release charges the full new quantity.
		assert.Equal(t, 8, rec.QuantityDiff(8))
	})

	t.Run("finalized row holds nothing for diff purposes", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		require.NoError(t, rec.Finalize(baseTime))
		assert.Equal(t, 0, rec.EffectiveQuantity())
	})
}

func TestRereserve(t *testing.T) {
	t.Run("overwrites quantity and deadline", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		newDeadline := deadline.Add(10 * time.Minute)
		later := baseTime.Add(time.Minute)

		require.NoError(t, rec.Rereserve(8, newDeadline, later))

		assert.Equal(t, 8, rec.Quantity())
		assert.Equal(t, reservation.StatusReserved, rec.Status())
		assert.Equal(t, newDeadline, rec.ReservedUntil())
		assert.Equal(t, later, rec.UpdatedAt())
	})

	t.Run("re-enters reserved from released", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		require.NoError(t, rec.Release(baseTime))

		require.NoError(t, rec.Rereserve(3, deadline, baseTime))

		assert.Equal(t, reservation.StatusReserved, rec.Status())
		assert.Equal(t, 3, rec.Quantity())
	})

	t.Run("finalized row cannot be re-reserved", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		require.NoError(t, rec.Finalize(baseTime))

		err := rec.Rereserve(3, deadline, baseTime)
		assert.ErrorIs(t, err, reservation.ErrFinalized)
	})

	t.Run("negative quantity is rejected", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		err := rec.Rereserve(-1, deadline, baseTime)
		assert.ErrorIs(t, err, reservation.ErrInvalidQuantity)
	})
}

func TestStatusTransitions(t *testing.T) {
	t.Run("release then release fails", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		require.NoError(t, rec.Release(baseTime))
		assert.ErrorIs(t, rec.Release(baseTime), reservation.ErrNotReserved)
	})

	t.Run("finalize then release fails", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		require.NoError(t, rec.Finalize(baseTime))
		assert.ErrorIs(t, rec.Release(baseTime), reservation.ErrNotReserved)
	})

	t.Run("extend requires reserved state", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		require.NoError(t, rec.Release(baseTime))
		assert.ErrorIs(t, rec.Extend(deadline, baseTime), reservation.ErrNotReserved)
	})

	t.Run("extend moves only the deadline", func(t *testing.T) {
		rec := newReservedRecord(t, 5)
		newDeadline := deadline.Add(10 * time.Minute)

		require.NoError(t, rec.Extend(newDeadline, baseTime))

		assert.Equal(t, newDeadline, rec.ReservedUntil())
		assert.Equal(t, 5, rec.Quantity())
		assert.Equal(t, reservation.StatusReserved, rec.Status())
	})
}

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(t *testing.T, rec *reservation.Record)
		now      time.Time
		expected bool
	}{
		{
			name:     "deadline in the past",
			now:      deadline.Add(time.Second),
			expected: true,
		},
		{
			name:     "deadline exactly now is not expired",
			now:      deadline,
			expected: false,
		},
		{
			name:     "deadline in the future",
			now:      deadline.Add(-time.Second),
			expected: false,
		},
		{
			name: "released row is never expired",
			mutate: func(t *testing.T, rec *reservation.Record) {
				require.NoError(t, rec.Release(baseTime))
			},
			now:      deadline.Add(time.Hour),
			expected: false,
		},
		{
			name: "finalized row is never expired",
			mutate: func(t *testing.T, rec *reservation.Record) {
				require.NoError(t, rec.Finalize(baseTime))
			},
			now:      deadline.Add(time.Hour),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newReservedRecord(t, 5)
			if tt.mutate != nil {
				tt.mutate(t, rec)
			}
			assert.Equal(t, tt.expected, rec.IsExpired(tt.now))
		})
	}

	t.Run("zero quantity row is skipped by the sweep", func(t *testing.T) {
		rec := newReservedRecord(t, 0)
		assert.False(t, rec.IsExpired(deadline.Add(time.Hour)))
	})
}
