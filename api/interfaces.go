package api

import (
	"context"

	"github.com/iLayer-io/iLayer-bot/store"
)

// OrderReader defines the order queries needed by the API server
type OrderReader interface {
	GetByOrderID(ctx context.Context, orderID []byte) (*store.Order, error)
	ListByChainAndStatus(ctx context.Context, chainID uint64, status store.OrderStatus) ([]store.Order, error)
	CountByChainAndStatus(ctx context.Context, chainID uint64, status store.OrderStatus) (int64, error)
}

// CheckpointReader defines the checkpoint queries needed by the API server
type CheckpointReader interface {
	GetLastCheckpoint(ctx context.Context, chainID uint64) (uint64, bool, error)
}

// PendingReader counts terminal events waiting for their order
type PendingReader interface {
	CountByChain(ctx context.Context, chainID uint64) (int64, error)
}
