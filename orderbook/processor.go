package orderbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
	"github.com/iLayer-io/iLayer-bot/metrics"
	"github.com/iLayer-io/iLayer-bot/store"
)

// Processor applies decoded order-book logs to the order table. Applying the
// same log twice leaves the table unchanged.
type Processor struct {
	chainID uint64
	chain   string
	decoder *Decoder
	orders  store.OrderStore
	pending store.PendingTransitionStore
	logger  zerolog.Logger
}

// NewProcessor creates a processor for one chain.
func NewProcessor(
	chainID uint64,
	decoder *Decoder,
	orders store.OrderStore,
	pending store.PendingTransitionStore,
	logger zerolog.Logger,
) *Processor {
	chain := fmt.Sprintf("%d", chainID)
	return &Processor{
		chainID: chainID,
		chain:   chain,
		decoder: decoder,
		orders:  orders,
		pending: pending,
		logger:  logger.With().Str("component", "order_processor").Str("chain", chain).Logger(),
	}
}

// Apply decodes log and projects it. Unrecognized logs and store failures
// are returned; terminal events on unknown or already-terminal orders are
// reported and absorbed.
func (p *Processor) Apply(ctx context.Context, log types.Log) error {
	event, err := p.decoder.Decode(log)
	if err != nil {
		return ilerrors.NewDecodeError(p.chain, "failed to decode log", err).
			WithContext("block", log.BlockNumber).
			WithContext("tx", log.TxHash.Hex())
	}

	switch ev := event.(type) {
	case *OrderCreated:
		err = p.applyCreated(ctx, ev)
	case *OrderFilled:
		err = p.applyTerminal(ctx, ev.OrderId, store.OrderStatusFilled, log.BlockNumber)
	case *OrderWithdrawn:
		err = p.applyTerminal(ctx, ev.OrderId, store.OrderStatusWithdrawn, log.BlockNumber)
	default:
		return ilerrors.NewInternalError(p.chain, fmt.Sprintf("unhandled event %T", event), nil)
	}
	if err != nil {
		return err
	}

	metrics.ListenerLogsProcessed.WithLabelValues(p.chain, string(event.Kind())).Inc()
	return nil
}

func (p *Processor) applyCreated(ctx context.Context, ev *OrderCreated) error {
	orderID := ev.OrderId[:]

	_, err := p.orders.GetByOrderID(ctx, orderID)
	switch {
	case err == nil:
		p.logger.Debug().Hex("order_id", orderID).Msg("order already indexed")
		return p.applyPending(ctx, orderID)
	case !errors.Is(err, store.ErrNotFound):
		return ilerrors.NewDatabaseError(p.chain, "failed to look up order", err)
	}

	order, err := MapOrder(p.chainID, ev.OrderId, ev.Order)
	if err != nil {
		return ilerrors.NewDecodeError(p.chain, "failed to map order", err).
			WithContext("order_id", fmt.Sprintf("%x", orderID))
	}

	if _, err := p.orders.Insert(ctx, order); err != nil {
		if !errors.Is(err, store.ErrDuplicateOrder) {
			return ilerrors.NewDatabaseError(p.chain, "failed to insert order", err)
		}
		p.logger.Debug().Hex("order_id", orderID).Msg("order inserted concurrently")
	} else {
		p.logger.Info().
			Hex("order_id", orderID).
			Uint64("block", ev.Raw.BlockNumber).
			Time("deadline", order.Deadline).
			Msg("order created")
	}

	return p.applyPending(ctx, orderID)
}

// applyPending replays a terminal event that arrived before the order existed.
func (p *Processor) applyPending(ctx context.Context, orderID []byte) error {
	pending, err := p.pending.Take(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return ilerrors.NewDatabaseError(p.chain, "failed to read pending transition", err)
	}

	p.logger.Info().
		Hex("order_id", orderID).
		Str("status", string(pending.Status)).
		Msg("applying buffered transition")
	return p.updateStatus(ctx, orderID, pending.Status, pending.BlockNumber)
}

func (p *Processor) applyTerminal(ctx context.Context, id [32]byte, status store.OrderStatus, block uint64) error {
	return p.updateStatus(ctx, id[:], status, block)
}

func (p *Processor) updateStatus(ctx context.Context, orderID []byte, status store.OrderStatus, block uint64) error {
	err := p.orders.UpdateStatus(ctx, orderID, status)
	switch {
	case err == nil:
		p.logger.Info().Hex("order_id", orderID).Str("status", string(status)).Msg("order status updated")
		return nil

	case errors.Is(err, store.ErrNotFound):
		p.logger.Warn().
			Err(ilerrors.NewNotFoundError(p.chain, "status update for unknown order", err)).
			Hex("order_id", orderID).
			Str("status", string(status)).
			Uint64("block", block).
			Msg("buffering transition")
		metrics.PendingTransitions.WithLabelValues(p.chain, string(status)).Inc()
		if err := p.pending.Put(ctx, &store.PendingTransition{
			ChainID:     p.chainID,
			OrderID:     append([]byte(nil), orderID...),
			Status:      status,
			BlockNumber: block,
		}); err != nil {
			return ilerrors.NewDatabaseError(p.chain, "failed to buffer transition", err)
		}
		return nil

	case errors.Is(err, store.ErrInvalidTransition):
		p.logger.Warn().
			Err(err).
			Hex("order_id", orderID).
			Str("status", string(status)).
			Msg("conflicting terminal event ignored")
		metrics.InvalidTransitions.WithLabelValues(p.chain, string(status)).Inc()
		return nil

	default:
		return ilerrors.NewDatabaseError(p.chain, "failed to update order status", err)
	}
}
