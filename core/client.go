package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iLayer-io/iLayer-bot/api"
	"github.com/iLayer-io/iLayer-bot/cache"
	chaincommon "github.com/iLayer-io/iLayer-bot/chains/common"
	"github.com/iLayer-io/iLayer-bot/chains/evm"
	"github.com/iLayer-io/iLayer-bot/config"
	"github.com/iLayer-io/iLayer-bot/db"
	"github.com/iLayer-io/iLayer-bot/filler"
	"github.com/iLayer-io/iLayer-bot/orderbook"
	"github.com/iLayer-io/iLayer-bot/pubsub"
	"github.com/iLayer-io/iLayer-bot/watcher"
)

// Client runs the listener, watcher and filler of every configured chain.
type Client struct {
	cfg      config.Config
	homeDir  string
	log      zerolog.Logger
	dial     ChainDialer
	executor filler.Executor

	database  *db.DB
	transport pubsub.Transport
	server    *api.Server
}

// Option customizes a Client.
type Option func(*Client)

// WithChainDialer replaces the go-ethereum RPC client.
func WithChainDialer(dial ChainDialer) Option {
	return func(c *Client) { c.dial = dial }
}

// WithExecutor replaces the no-op fill executor.
func WithExecutor(executor filler.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

// NewClient creates a client for cfg. homeDir holds the default SQLite database.
func NewClient(cfg config.Config, homeDir string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		homeDir: homeDir,
		log:     log,
		dial:    DialRPC,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = filler.NewNoopExecutor(log)
	}
	return c
}

// Start opens storage and transport, then runs every chain service until ctx is
// cancelled. Service errors are retried by their supervisor; a panic in any
// service stops the client and is returned.
func (c *Client) Start(ctx context.Context) error {
	c.log.Info().Int("chains", len(c.cfg.Chains)).Msg("starting ilayer bot")
	defer c.shutdown()

	if err := c.open(ctx); err != nil {
		return err
	}

	services, err := c.buildServices()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range services {
		s := s
		runSafe(g, s.svc.Name(), func() error {
			if err := s.supervisor.Run(gctx, s.svc); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	c.log.Info().Int("services", len(services)).Msg("initialization complete")
	if err := g.Wait(); err != nil {
		c.log.Error().Err(err).Msg("client stopped with a fatal error")
		return err
	}
	c.log.Info().Msg("shutting down ilayer bot")
	return nil
}

func (c *Client) open(ctx context.Context) error {
	database, err := db.Open(c.cfg.DatabaseURL, filepath.Join(c.homeDir, "data"), true)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.database = database

	transport, err := openTransport(ctx, c.cfg.RedisURL)
	if err != nil {
		return err
	}
	c.transport = transport

	chainIDs := make([]uint64, 0, len(c.cfg.Chains))
	for _, chain := range c.cfg.Chains {
		chainIDs = append(chainIDs, chain.ChainID)
	}
	c.server = api.NewServer(
		db.NewOrderStore(database),
		db.NewCheckpointStore(database),
		db.NewPendingStore(database),
		chainIDs,
		c.log,
		c.cfg.QueryServerPort,
	)
	if err := c.server.Start(); err != nil {
		return fmt.Errorf("failed to start query server: %w", err)
	}
	return nil
}

func openTransport(ctx context.Context, redisURL string) (pubsub.Transport, error) {
	if redisURL == "" {
		return pubsub.NewMemoryTransport(), nil
	}
	transport, err := pubsub.NewRedisTransport(ctx, redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open redis transport: %w", err)
	}
	return transport, nil
}

type supervisedService struct {
	svc        chaincommon.Service
	supervisor *chaincommon.Supervisor
}

func (c *Client) buildServices() ([]supervisedService, error) {
	decoder, err := orderbook.NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("failed to load order book abi: %w", err)
	}

	orders := db.NewOrderStore(c.database)
	checkpoints := db.NewCheckpointStore(c.database)
	pending := db.NewPendingStore(c.database)

	var services []supervisedService
	for _, chain := range c.cfg.Chains {
		chain := chain
		log := c.log.With().Str("chain_name", chain.DisplayName()).Logger()

		policy, err := watcher.NewReadyPolicy(chain.FillerAddress)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", chain.ChainID, err)
		}
		cooldown, err := cache.NewCooldown(cache.DefaultSize, chain.FillCooldown(), log)
		if err != nil {
			return nil, fmt.Errorf("chain %d: failed to create cooldown cache: %w", chain.ChainID, err)
		}

		processor := orderbook.NewProcessor(chain.ChainID, decoder, orders, pending, log)
		listener := &listenerService{
			chain: chain,
			dial:  c.dial,
			log:   log,
			build: func(client evm.ChainClient) *evm.EventListener {
				return evm.NewEventListener(client, checkpoints, processor, evm.ListenerConfig{
					ChainID:    chain.ChainID,
					Contract:   ethcommon.HexToAddress(chain.OrderContractAddress),
					Topics:     decoder.Topics(),
					StartBlock: chain.StartBlock,
					BatchSize:  chain.BlockBatchSize,
				}, log)
			},
		}
		orderWatcher := watcher.New(watcher.Config{
			ChainID:      chain.ChainID,
			PollInterval: chain.PollInterval(),
			Policy:       policy,
			Orders:       orders,
			Publisher:    c.transport,
			Logger:       log,
		})
		orderFiller := filler.New(filler.Config{
			ChainID:    chain.ChainID,
			Orders:     orders,
			Subscriber: c.transport,
			Executor:   c.executor,
			Cooldown:   cooldown,
			Logger:     log,
		})

		supervisor := chaincommon.NewSupervisor(fmt.Sprintf("%d", chain.ChainID), chain.RetryBackoff(), log)
		for _, svc := range []chaincommon.Service{listener, orderWatcher, orderFiller} {
			services = append(services, supervisedService{svc: svc, supervisor: supervisor})
		}
	}
	return services, nil
}

// runSafe runs fn in g, turning a panic into an error that cancels the group.
func runSafe(g *errgroup.Group, name string, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v\n%s", name, r, debug.Stack())
			}
		}()
		return fn()
	})
}

func (c *Client) shutdown() {
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			c.log.Warn().Err(err).Msg("failed to stop query server")
		}
	}
	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			c.log.Warn().Err(err).Msg("failed to close transport")
		}
	}
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.log.Warn().Err(err).Msg("failed to close database")
		}
	}
}
