package config

import (
	"fmt"
	"time"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level" mapstructure:"log_level"`     // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format" mapstructure:"log_format"`   // "json" or "console"
	LogSampler bool   `json:"log_sampler" mapstructure:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Storage and transport
	DatabaseURL string `json:"database_url" mapstructure:"database_url"` // sqlite://<path>, postgres://..., or empty for <home>/data/ilayer.db
	RedisURL    string `json:"redis_url" mapstructure:"redis_url"`       // redis://host:port/db; empty selects the in-process transport

	// Query Server Config
	QueryServerPort int `json:"query_server_port" mapstructure:"query_server_port"` // Port for HTTP query server (default: 8080)

	Chains []ChainConfig `json:"chains" mapstructure:"chains"`
}

// ChainConfig holds everything needed to serve one chain.
type ChainConfig struct {
	Name                 string   `json:"name" mapstructure:"name"`
	ChainID              uint64   `json:"chain_id" mapstructure:"chain_id"`
	RPCURLs              []string `json:"rpc_urls" mapstructure:"rpc_urls"`                             // HTTP endpoints, used round-robin on failure
	WSURL                string   `json:"ws_url" mapstructure:"ws_url"`                                 // WebSocket endpoint for log subscriptions
	OrderContractAddress string   `json:"order_contract_address" mapstructure:"order_contract_address"` // order-book contract (hex)

	// StartBlock is the first block to index when no checkpoint exists. A stored
	// checkpoint below it is a configuration error.
	StartBlock *uint64 `json:"start_block,omitempty" mapstructure:"start_block"`

	BlockBatchSize      uint64 `json:"block_batch_size" mapstructure:"block_batch_size"`           // default: 1000
	PollIntervalMs      int    `json:"poll_interval_ms" mapstructure:"poll_interval_ms"`           // watcher period, default: 5000
	RetryBackoffSeconds int    `json:"retry_backoff_seconds" mapstructure:"retry_backoff_seconds"` // supervisor backoff, default: 6

	FillerAddress       string `json:"filler_address,omitempty" mapstructure:"filler_address"` // hex, this bot's filler identity
	FillCooldownSeconds int    `json:"fill_cooldown_seconds" mapstructure:"fill_cooldown_seconds"`
}

// PollInterval returns the watcher period.
func (c ChainConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RetryBackoff returns the supervisor restart delay.
func (c ChainConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

// FillCooldown returns how long a failed order is skipped by the filler.
func (c ChainConfig) FillCooldown() time.Duration {
	return time.Duration(c.FillCooldownSeconds) * time.Second
}

// DisplayName returns the configured name, or the chain id when none is set.
func (c ChainConfig) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%d", c.ChainID)
}
