package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
	"github.com/iLayer-io/iLayer-bot/metrics"
	"github.com/iLayer-io/iLayer-bot/store"
)

const (
	// DefaultBatchSize is the number of blocks fetched per FilterLogs call.
	DefaultBatchSize = 1000

	liveBufferSize = 128
)

// ChainClient is the chain RPC surface used by the listener.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// LogProcessor applies one contract log. It must be idempotent.
type LogProcessor interface {
	Apply(ctx context.Context, log types.Log) error
}

// ListenerConfig holds the per-chain listener settings.
type ListenerConfig struct {
	ChainID    uint64
	Contract   ethcommon.Address
	Topics     []ethcommon.Hash
	StartBlock *uint64
	BatchSize  uint64
}

// EventListener indexes order-book logs of one chain. It backfills from the
// resume height in fixed-size batches, checkpointing after each, then follows
// new logs over a subscription.
type EventListener struct {
	client      ChainClient
	checkpoints store.CheckpointStore
	processor   LogProcessor
	cfg         ListenerConfig
	chain       string
	logger      zerolog.Logger
}

// NewEventListener creates a new event listener
func NewEventListener(
	client ChainClient,
	checkpoints store.CheckpointStore,
	processor LogProcessor,
	cfg ListenerConfig,
	logger zerolog.Logger,
) *EventListener {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	chain := fmt.Sprintf("%d", cfg.ChainID)
	return &EventListener{
		client:      client,
		checkpoints: checkpoints,
		processor:   processor,
		cfg:         cfg,
		chain:       chain,
		logger:      logger.With().Str("component", "evm_event_listener").Str("chain", chain).Logger(),
	}
}

// Name identifies the service in supervisor logs.
func (l *EventListener) Name() string {
	return "listener"
}

// Run verifies the endpoint, backfills and then follows the chain until ctx is
// cancelled or an error occurs.
func (l *EventListener) Run(ctx context.Context) error {
	if err := l.verifyChainID(ctx); err != nil {
		return err
	}

	from, ok, err := l.ResolveStart(ctx)
	if err != nil {
		return err
	}

	if ok {
		l.logger.Info().Uint64("from_block", from).Msg("starting backfill")
		from, err = l.Backfill(ctx, from)
		if err != nil {
			return err
		}
	} else {
		head, err := l.client.BlockNumber(ctx)
		if err != nil {
			return ilerrors.NewRPCError(l.chain, "failed to get latest block", err)
		}
		from = head + 1
		l.logger.Info().Uint64("head", head).Msg("no start block or checkpoint, following chain head")
	}

	return l.follow(ctx, from)
}

// ResolveStart returns the first block to process. ok is false when neither a
// configured start block nor a checkpoint exists. A checkpoint behind the
// configured start block is a configuration error.
func (l *EventListener) ResolveStart(ctx context.Context) (uint64, bool, error) {
	last, found, err := l.checkpoints.GetLastCheckpoint(ctx, l.cfg.ChainID)
	if err != nil {
		return 0, false, ilerrors.NewDatabaseError(l.chain, "failed to read last checkpoint", err)
	}

	configStart := l.cfg.StartBlock
	switch {
	case found && configStart != nil:
		dbStart := last + 1
		if dbStart < *configStart {
			return 0, false, ilerrors.NewConfigError(l.chain,
				fmt.Sprintf("checkpoint resume block %d is behind configured start block %d", dbStart, *configStart)).
				WithContext("checkpoint", last).
				WithContext("start_block", *configStart)
		}
		return dbStart, true, nil
	case found:
		return last + 1, true, nil
	case configStart != nil:
		return *configStart, true, nil
	default:
		return 0, false, nil
	}
}

// Backfill processes [from, head] in batches and returns the next unprocessed block.
func (l *EventListener) Backfill(ctx context.Context, from uint64) (uint64, error) {
	latest, err := l.client.BlockNumber(ctx)
	if err != nil {
		return from, ilerrors.NewRPCError(l.chain, "failed to get latest block", err)
	}

	for from <= latest {
		select {
		case <-ctx.Done():
			return from, ctx.Err()
		default:
		}

		to := from + l.cfg.BatchSize - 1
		if to > latest || to < from {
			to = latest
		}

		if err := l.processRange(ctx, from, to); err != nil {
			return from, err
		}
		if err := l.checkpoint(ctx, to); err != nil {
			return from, err
		}
		from = to + 1
	}
	return from, nil
}

func (l *EventListener) processRange(ctx context.Context, from, to uint64) error {
	start := time.Now()

	logs, err := l.client.FilterLogs(ctx, l.filterQuery(&from, &to))
	if err != nil {
		return ilerrors.NewRPCError(l.chain, "failed to filter logs", err).
			WithContext("from_block", from).
			WithContext("to_block", to)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	if len(logs) > 0 {
		l.logger.Info().
			Uint64("from_block", from).
			Uint64("to_block", to).
			Int("logs_found", len(logs)).
			Msg("found order-book events")
	}

	for _, log := range logs {
		if log.Removed {
			continue
		}
		if err := l.processor.Apply(ctx, log); err != nil {
			return err
		}
	}

	metrics.ListenerBatchLatency.WithLabelValues(l.chain).Observe(time.Since(start).Seconds())
	return nil
}

// follow subscribes to new logs, closes the gap between the backfill and the
// subscription, then processes delivered logs in order.
func (l *EventListener) follow(ctx context.Context, from uint64) error {
	ch := make(chan types.Log, liveBufferSize)
	sub, err := l.client.SubscribeFilterLogs(ctx, l.filterQuery(nil, nil), ch)
	if err != nil {
		return ilerrors.NewRPCError(l.chain, "failed to subscribe to logs", err)
	}
	defer sub.Unsubscribe()

	from, err = l.Backfill(ctx, from)
	if err != nil {
		return err
	}
	l.logger.Info().Uint64("from_block", from).Msg("following live logs")

	var (
		openBlock uint64
		hasOpen   bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return ilerrors.NewRPCError(l.chain, "log subscription ended", err)

		case log := <-ch:
			if log.Removed {
				l.logger.Warn().
					Uint64("block", log.BlockNumber).
					Str("tx_hash", log.TxHash.Hex()).
					Msg("skipping removed log")
				continue
			}
			if log.BlockNumber < from {
				l.logger.Debug().Uint64("block", log.BlockNumber).Msg("skipping already checkpointed log")
				continue
			}

			// every log of openBlock has been delivered once a later block shows up
			if hasOpen && log.BlockNumber > openBlock {
				if err := l.checkpoint(ctx, openBlock); err != nil {
					return err
				}
				from = openBlock + 1
			}

			if err := l.processor.Apply(ctx, log); err != nil {
				return err
			}
			openBlock = log.BlockNumber
			hasOpen = true
		}
	}
}

func (l *EventListener) checkpoint(ctx context.Context, height uint64) error {
	if err := l.checkpoints.AppendCheckpoint(ctx, l.cfg.ChainID, height); err != nil {
		return ilerrors.NewDatabaseError(l.chain, "failed to append checkpoint", err).
			WithContext("height", height)
	}
	metrics.ListenerCheckpointHeight.WithLabelValues(l.chain).Set(float64(height))
	l.logger.Debug().Uint64("height", height).Msg("checkpoint recorded")
	return nil
}

func (l *EventListener) verifyChainID(ctx context.Context) error {
	id, err := l.client.ChainID(ctx)
	if err != nil {
		return ilerrors.NewRPCError(l.chain, "failed to get chain id", err)
	}
	if !id.IsUint64() || id.Uint64() != l.cfg.ChainID {
		return ilerrors.NewConfigError(l.chain, fmt.Sprintf("endpoint reports chain id %s", id))
	}
	return nil
}

func (l *EventListener) filterQuery(from, to *uint64) ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		Addresses: []ethcommon.Address{l.cfg.Contract},
		Topics:    [][]ethcommon.Hash{l.cfg.Topics},
	}
	if from != nil {
		query.FromBlock = new(big.Int).SetUint64(*from)
	}
	if to != nil {
		query.ToBlock = new(big.Int).SetUint64(*to)
	}
	return query
}
