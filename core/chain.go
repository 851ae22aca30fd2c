package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iLayer-io/iLayer-bot/chains/evm"
	"github.com/iLayer-io/iLayer-bot/config"
	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
)

// ChainBackend is a chain client owning network connections.
type ChainBackend interface {
	evm.ChainClient
	Close()
}

// ChainDialer connects to the RPC endpoints of one chain.
type ChainDialer func(ctx context.Context, chain config.ChainConfig, logger zerolog.Logger) (ChainBackend, error)

// DialRPC connects with the go-ethereum client.
func DialRPC(ctx context.Context, chain config.ChainConfig, logger zerolog.Logger) (ChainBackend, error) {
	client, err := evm.NewRPCClient(ctx, chain.RPCURLs, chain.WSURL, chain.ChainID, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// listenerService dials a fresh backend on every run so that a restart also
// recovers lost connections.
type listenerService struct {
	chain config.ChainConfig
	dial  ChainDialer
	build func(evm.ChainClient) *evm.EventListener
	log   zerolog.Logger
}

func (s *listenerService) Name() string {
	return "listener"
}

func (s *listenerService) Run(ctx context.Context) error {
	backend, err := s.dial(ctx, s.chain, s.log)
	if err != nil {
		return ilerrors.NewRPCError(fmt.Sprintf("%d", s.chain.ChainID), "failed to connect to chain", err)
	}
	defer backend.Close()

	return s.build(backend).Run(ctx)
}
