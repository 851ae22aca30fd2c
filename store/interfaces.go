package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOrder is returned by Insert when the order id is already stored.
	ErrDuplicateOrder = errors.New("duplicate order id")

	// ErrInvalidTransition is returned when a status change would leave a terminal
	// state or the guarded source state does not match.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrCheckpointRegression is returned when a checkpoint lower than the current
	// maximum is appended.
	ErrCheckpointRegression = errors.New("checkpoint height regression")
)

// OrderStore persists orders. Implementations enforce order id uniqueness and
// perform status changes atomically.
type OrderStore interface {
	// GetByOrderID returns ErrNotFound if the order is unknown.
	GetByOrderID(ctx context.Context, orderID []byte) (*Order, error)

	// Insert returns the row id, or ErrDuplicateOrder.
	Insert(ctx context.Context, order *Order) (uint, error)

	// UpdateStatus moves a CREATED order to status. Setting the status an order
	// already has is a no-op. Returns ErrNotFound or ErrInvalidTransition.
	UpdateStatus(ctx context.Context, orderID []byte, status OrderStatus) error

	// TransitionStatus changes the status only if the order is currently in from.
	TransitionStatus(ctx context.Context, orderID []byte, from, to OrderStatus) error

	ListByChainAndStatus(ctx context.Context, chainID uint64, status OrderStatus) ([]Order, error)
}

// CheckpointStore persists per-chain block checkpoints.
type CheckpointStore interface {
	// GetLastCheckpoint returns the highest recorded height; found is false when
	// the chain has no checkpoint yet.
	GetLastCheckpoint(ctx context.Context, chainID uint64) (height uint64, found bool, err error)

	// AppendCheckpoint records height. Returns ErrCheckpointRegression if height is
	// lower than the current maximum.
	AppendCheckpoint(ctx context.Context, chainID, height uint64) error
}

// PendingTransitionStore buffers terminal events for orders not yet indexed.
type PendingTransitionStore interface {
	// Put stores or replaces the buffered transition for the order id.
	Put(ctx context.Context, pending *PendingTransition) error

	// Take returns and deletes the buffered transition, or ErrNotFound.
	Take(ctx context.Context, orderID []byte) (*PendingTransition, error)
}
