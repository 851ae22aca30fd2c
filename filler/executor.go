package filler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iLayer-io/iLayer-bot/store"
)

// Executor performs the on-chain fill of a ready order. A nil error means the
// order is filled and may be marked FILLED.
type Executor interface {
	Fill(ctx context.Context, order *store.Order) error
}

// NoopExecutor accepts every order without submitting a transaction.
type NoopExecutor struct {
	logger zerolog.Logger
}

// NewNoopExecutor creates an executor that only logs.
func NewNoopExecutor(logger zerolog.Logger) *NoopExecutor {
	return &NoopExecutor{logger: logger.With().Str("component", "noop_executor").Logger()}
}

func (e *NoopExecutor) Fill(_ context.Context, order *store.Order) error {
	e.logger.Info().
		Uint64("chain_id", order.ChainID).
		Hex("order_id", order.OrderID).
		Msg("fill accepted without submission")
	return nil
}
