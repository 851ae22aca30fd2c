package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
	"github.com/iLayer-io/iLayer-bot/metrics"
	"github.com/iLayer-io/iLayer-bot/pubsub"
	"github.com/iLayer-io/iLayer-bot/store"
)

const defaultPollInterval = 5 * time.Second

// OrderLister lists orders of a chain by status.
type OrderLister interface {
	ListByChainAndStatus(ctx context.Context, chainID uint64, status store.OrderStatus) ([]store.Order, error)
}

// Config holds configuration for the watcher.
type Config struct {
	ChainID      uint64
	PollInterval time.Duration
	Policy       ReadyPolicy
	Orders       OrderLister
	Publisher    pubsub.Publisher
	Logger       zerolog.Logger
}

// Watcher periodically publishes the ready orders of one chain on its
// orders topic. An order is republished on every scan until it leaves CREATED.
type Watcher struct {
	chainID      uint64
	chain        string
	topic        string
	pollInterval time.Duration
	policy       ReadyPolicy
	orders       OrderLister
	publisher    pubsub.Publisher
	now          func() time.Time
	logger       zerolog.Logger
}

// New creates a new watcher.
func New(cfg Config) *Watcher {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	chain := fmt.Sprintf("%d", cfg.ChainID)
	return &Watcher{
		chainID:      cfg.ChainID,
		chain:        chain,
		topic:        pubsub.OrdersTopic(cfg.ChainID),
		pollInterval: interval,
		policy:       cfg.Policy,
		orders:       cfg.Orders,
		publisher:    cfg.Publisher,
		now:          time.Now,
		logger:       cfg.Logger.With().Str("component", "order_watcher").Str("chain", chain).Logger(),
	}
}

// Name identifies the service in supervisor logs.
func (w *Watcher) Name() string {
	return "watcher"
}

// Run scans every poll interval until ctx is cancelled or a scan fails.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Scan(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Scan publishes every ready order once and returns how many were published.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	orders, err := w.orders.ListByChainAndStatus(ctx, w.chainID, store.OrderStatusCreated)
	if err != nil {
		return 0, ilerrors.NewDatabaseError(w.chain, "failed to list open orders", err)
	}
	metrics.WatcherOpenOrders.WithLabelValues(w.chain).Set(float64(len(orders)))

	now := w.now()
	published := 0
	for i := range orders {
		order := &orders[i]
		if order.ChainID != w.chainID || !w.policy.Ready(order, now) {
			continue
		}

		payload, err := pubsub.EncodeOrder(order)
		if err != nil {
			return published, ilerrors.NewInternalError(w.chain, "failed to encode order", err)
		}
		if err := w.publisher.Publish(ctx, w.topic, payload); err != nil {
			return published, ilerrors.NewPubSubError(w.chain, "failed to publish order", err).
				WithContext("order_id", fmt.Sprintf("%x", order.OrderID))
		}
		published++
	}

	if published > 0 {
		metrics.WatcherOrdersPublished.WithLabelValues(w.chain).Add(float64(published))
		w.logger.Info().
			Int("published", published).
			Int("open", len(orders)).
			Msg("published ready orders")
	}
	return published, nil
}
