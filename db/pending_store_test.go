package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iLayer-io/iLayer-bot/store"
)

func TestPendingStore(t *testing.T) {
	ctx := context.Background()
	orderID := []byte{0x01, 0x02, 0x03}

	t.Run("put then take removes the row", func(t *testing.T) {
		s := NewPendingStore(setupTestDB(t))
		require.NoError(t, s.Put(ctx, &store.PendingTransition{
			ChainID: 1, OrderID: orderID, Status: store.OrderStatusFilled, BlockNumber: 12,
		}))

		count, err := s.CountByChain(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := s.Take(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, store.OrderStatusFilled, got.Status)
		assert.Equal(t, uint64(12), got.BlockNumber)

		_, err = s.Take(ctx, orderID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put replaces an earlier transition", func(t *testing.T) {
		s := NewPendingStore(setupTestDB(t))
		require.NoError(t, s.Put(ctx, &store.PendingTransition{
			ChainID: 1, OrderID: orderID, Status: store.OrderStatusFilled, BlockNumber: 12,
		}))
		require.NoError(t, s.Put(ctx, &store.PendingTransition{
			ChainID: 1, OrderID: orderID, Status: store.OrderStatusWithdrawn, BlockNumber: 13,
		}))

		count, err := s.CountByChain(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := s.Take(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, store.OrderStatusWithdrawn, got.Status)
		assert.Equal(t, uint64(13), got.BlockNumber)
	})

	t.Run("non terminal status is rejected", func(t *testing.T) {
		s := NewPendingStore(setupTestDB(t))
		err := s.Put(ctx, &store.PendingTransition{ChainID: 1, OrderID: orderID, Status: store.OrderStatusCreated})
		require.ErrorIs(t, err, store.ErrInvalidTransition)
	})
}
