package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

const dialTimeout = 30 * time.Second

// RPCClient serves HTTP calls round-robin over the configured endpoints and
// log subscriptions over a WebSocket endpoint.
type RPCClient struct {
	clients []*ethclient.Client
	index   uint64
	mu      sync.RWMutex

	wsURL    string
	wsMu     sync.Mutex
	wsClient *ethclient.Client

	logger zerolog.Logger
}

var _ ChainClient = (*RPCClient)(nil)

// NewRPCClient dials the HTTP endpoints and drops any whose chain id differs from
// expectedChainID. Endpoints that cannot report a chain id are kept. Dialing
// stops when ctx is done.
func NewRPCClient(ctx context.Context, rpcURLs []string, wsURL string, expectedChainID uint64, logger zerolog.Logger) (*RPCClient, error) {
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}

	log := logger.With().Str("component", "evm_rpc_client").Uint64("chain_id", expectedChainID).Logger()
	clients := make([]*ethclient.Client, 0, len(rpcURLs))

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	for _, url := range rpcURLs {
		if ctx.Err() != nil {
			closeAll(clients)
			return nil, fmt.Errorf("dialing RPC endpoints: %w", ctx.Err())
		}

		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
			continue
		}

		clientChainID, err := client.ChainID(ctx)
		if err != nil {
			log.Warn().
				Err(err).
				Str("url", url).
				Msg("failed to verify chain ID, proceeding with client anyway")
			clients = append(clients, client)
			continue
		}

		if !clientChainID.IsUint64() || clientChainID.Uint64() != expectedChainID {
			client.Close()
			log.Warn().
				Str("url", url).
				Str("actual_chain_id", clientChainID.String()).
				Msg("chain ID mismatch, closing client")
			continue
		}

		clients = append(clients, client)
		log.Info().Str("url", url).Msg("connected to RPC endpoint")
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("failed to connect to any valid RPC endpoints")
	}

	return &RPCClient{
		clients: clients,
		wsURL:   wsURL,
		logger:  log,
	}, nil
}

func closeAll(clients []*ethclient.Client) {
	for _, client := range clients {
		client.Close()
	}
}

// executeWithFailover executes a function with round-robin failover
func (rc *RPCClient) executeWithFailover(ctx context.Context, operation string, fn func(*ethclient.Client) error) error {
	rc.mu.RLock()
	clients := rc.clients
	rc.mu.RUnlock()

	if len(clients) == 0 {
		return fmt.Errorf("no RPC clients available for %s", operation)
	}

	var lastErr error
	maxAttempts := len(clients)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		index := atomic.AddUint64(&rc.index, 1) - 1
		client := clients[index%uint64(len(clients))]
		if client == nil {
			continue
		}

		err := fn(client)
		if err == nil {
			return nil
		}
		lastErr = err

		rc.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return fmt.Errorf("operation %s failed after trying %d endpoints: %w", operation, maxAttempts, lastErr)
}

// ChainID returns the chain id reported by the endpoints.
func (rc *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	var chainID *big.Int
	err := rc.executeWithFailover(ctx, "chain_id", func(client *ethclient.Client) error {
		var innerErr error
		chainID, innerErr = client.ChainID(ctx)
		return innerErr
	})
	return chainID, err
}

// BlockNumber returns the latest block number
func (rc *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	var blockNum uint64
	err := rc.executeWithFailover(ctx, "get_block_number", func(client *ethclient.Client) error {
		var innerErr error
		blockNum, innerErr = client.BlockNumber(ctx)
		return innerErr
	})
	return blockNum, err
}

// FilterLogs fetches logs matching the filter query
func (rc *RPCClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := rc.executeWithFailover(ctx, "filter_logs", func(client *ethclient.Client) error {
		var innerErr error
		logs, innerErr = client.FilterLogs(ctx, query)
		return innerErr
	})
	return logs, err
}

// SubscribeFilterLogs opens a log subscription on a freshly dialed WebSocket
// connection, replacing the one used by the previous subscription.
func (rc *RPCClient) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if rc.wsURL == "" {
		return nil, fmt.Errorf("no WebSocket URL configured")
	}

	rc.wsMu.Lock()
	defer rc.wsMu.Unlock()

	if rc.wsClient != nil {
		rc.wsClient.Close()
		rc.wsClient = nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	client, err := ethclient.DialContext(dialCtx, rc.wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial WebSocket endpoint: %w", err)
	}

	sub, err := client.SubscribeFilterLogs(ctx, query, ch)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to subscribe to logs: %w", err)
	}
	rc.wsClient = client
	rc.logger.Debug().Msg("log subscription opened")
	return sub, nil
}

// Close closes all RPC connections
func (rc *RPCClient) Close() {
	rc.mu.Lock()
	for _, client := range rc.clients {
		if client != nil {
			client.Close()
		}
	}
	rc.clients = nil
	rc.mu.Unlock()

	rc.wsMu.Lock()
	if rc.wsClient != nil {
		rc.wsClient.Close()
		rc.wsClient = nil
	}
	rc.wsMu.Unlock()
}
