package filler

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
	"github.com/iLayer-io/iLayer-bot/metrics"
	"github.com/iLayer-io/iLayer-bot/pubsub"
	"github.com/iLayer-io/iLayer-bot/store"
)

// OrderStore is the part of store.OrderStore the filler needs.
type OrderStore interface {
	GetByOrderID(ctx context.Context, orderID []byte) (*store.Order, error)
	TransitionStatus(ctx context.Context, orderID []byte, from, to store.OrderStatus) error
}

// Cooldown tracks orders whose last fill attempt failed.
type Cooldown interface {
	Active(orderID []byte) bool
	Mark(orderID []byte)
	Clear(orderID []byte)
	Len() int
}

// Config holds configuration for the filler.
type Config struct {
	ChainID    uint64
	Orders     OrderStore
	Subscriber pubsub.Subscriber
	Executor   Executor
	Cooldown   Cooldown
	Logger     zerolog.Logger
}

// Filler consumes ready orders of one chain and fills them.
type Filler struct {
	chainID    uint64
	chain      string
	topic      string
	orders     OrderStore
	subscriber pubsub.Subscriber
	executor   Executor
	cooldown   Cooldown
	logger     zerolog.Logger
}

// New creates a new filler.
func New(cfg Config) *Filler {
	chain := fmt.Sprintf("%d", cfg.ChainID)
	return &Filler{
		chainID:    cfg.ChainID,
		chain:      chain,
		topic:      pubsub.OrdersTopic(cfg.ChainID),
		orders:     cfg.Orders,
		subscriber: cfg.Subscriber,
		executor:   cfg.Executor,
		cooldown:   cfg.Cooldown,
		logger:     cfg.Logger.With().Str("component", "order_filler").Str("chain", chain).Logger(),
	}
}

// Name identifies the service in supervisor logs.
func (f *Filler) Name() string {
	return "filler"
}

// Run consumes the orders topic until ctx is cancelled. A closed subscription or
// a store failure ends the run; a failure caused by the cancellation does not.
func (f *Filler) Run(ctx context.Context) error {
	sub, err := f.subscriber.Subscribe(ctx, f.topic)
	if err != nil {
		return ilerrors.NewPubSubError(f.chain, "failed to subscribe to "+f.topic, err)
	}
	defer sub.Close()

	f.logger.Info().Str("topic", f.topic).Msg("filler listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return ilerrors.NewPubSubError(f.chain, "subscription closed", nil)
			}
			if _, err := f.Handle(ctx, msg.Payload); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Handle processes one published order and returns the fill result.
func (f *Filler) Handle(ctx context.Context, payload []byte) (string, error) {
	result, err := f.handle(ctx, payload)
	if result != "" {
		metrics.FillerFills.WithLabelValues(f.chain, result).Inc()
	}
	return result, err
}

func (f *Filler) handle(ctx context.Context, payload []byte) (string, error) {
	msg, err := pubsub.DecodeOrder(payload)
	if err != nil {
		f.logger.Warn().Err(err).Msg("skipping malformed order message")
		return metrics.FillResultSkipped, nil
	}
	log := f.logger.With().Hex("order_id", msg.OrderID).Logger()

	if msg.ChainID != f.chainID {
		log.Warn().Uint64("message_chain_id", msg.ChainID).Msg("skipping order of another chain")
		return metrics.FillResultSkipped, nil
	}
	if f.cooldown != nil && f.cooldown.Active(msg.OrderID) {
		log.Debug().Msg("order in cooldown")
		return metrics.FillResultSkipped, nil
	}

	order, err := f.orders.GetByOrderID(ctx, msg.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn().Msg("published order is not indexed")
			return metrics.FillResultSkipped, nil
		}
		return "", ilerrors.NewDatabaseError(f.chain, "failed to load order", err)
	}
	if order.Status != store.OrderStatusCreated {
		log.Debug().Str("status", string(order.Status)).Msg("order no longer open")
		return metrics.FillResultSkipped, nil
	}

	log.Info().Msg("trying to fill ready order")
	if err := f.executor.Fill(ctx, order); err != nil {
		log.Error().Err(err).Msg("fill failed")
		if f.cooldown != nil {
			f.cooldown.Mark(order.OrderID)
			metrics.FillerCooldownOrders.WithLabelValues(f.chain).Set(float64(f.cooldown.Len()))
		}
		return metrics.FillResultFailed, nil
	}

	err = f.orders.TransitionStatus(ctx, order.OrderID, store.OrderStatusCreated, store.OrderStatusFilled)
	switch {
	case err == nil:
		log.Info().Msg("order filled")
		if f.cooldown != nil {
			f.cooldown.Clear(order.OrderID)
			metrics.FillerCooldownOrders.WithLabelValues(f.chain).Set(float64(f.cooldown.Len()))
		}
		return metrics.FillResultFilled, nil
	case errors.Is(err, store.ErrInvalidTransition):
		log.Debug().Msg("order already left CREATED")
		return metrics.FillResultDuplicate, nil
	default:
		return "", ilerrors.NewDatabaseError(f.chain, "failed to mark order filled", err)
	}
}
