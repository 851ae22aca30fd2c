package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/viper"
)

const (
	configSubdir   = "config"
	configFileName = "ilayer_config.json"

	// EnvPrefix prefixes every environment override, e.g. ILAYER_REDIS_URL.
	EnvPrefix = "ILAYER"

	DefaultBlockBatchSize      = 1000
	DefaultPollIntervalMs      = 5000
	DefaultRetryBackoffSeconds = 6
	DefaultFillCooldownSeconds = 30
	DefaultQueryServerPort     = 8080
)

//go:embed default_config.json
var defaultConfigJSON []byte

// globalKeys can be overridden from the environment even when absent from the file.
var globalKeys = []string{
	"log_level",
	"log_format",
	"log_sampler",
	"database_url",
	"redis_url",
	"query_server_port",
}

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	// Set defaults for query server
	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = DefaultQueryServerPort
	}

	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}

	seen := make(map[uint64]struct{}, len(cfg.Chains))
	for i := range cfg.Chains {
		chain := &cfg.Chains[i]
		if err := validateChainConfig(chain); err != nil {
			return fmt.Errorf("chain %s: %w", chain.DisplayName(), err)
		}
		if _, dup := seen[chain.ChainID]; dup {
			return fmt.Errorf("duplicate chain id %d", chain.ChainID)
		}
		seen[chain.ChainID] = struct{}{}
	}

	return nil
}

func validateChainConfig(chain *ChainConfig) error {
	if chain.ChainID == 0 {
		return fmt.Errorf("chain_id is required")
	}
	if !common.IsHexAddress(chain.OrderContractAddress) {
		return fmt.Errorf("order_contract_address %q is not a hex address", chain.OrderContractAddress)
	}
	if len(chain.RPCURLs) == 0 {
		return fmt.Errorf("at least one rpc url is required")
	}
	if chain.WSURL == "" {
		return fmt.Errorf("ws_url is required")
	}
	if chain.FillerAddress != "" {
		raw, err := hexutil.Decode(chain.FillerAddress)
		if err != nil {
			return fmt.Errorf("filler_address: %w", err)
		}
		if len(raw) != common.AddressLength && len(raw) != 64 {
			return fmt.Errorf("filler_address must be 20 or 64 bytes, got %d", len(raw))
		}
	}

	// Set defaults
	if chain.BlockBatchSize == 0 {
		chain.BlockBatchSize = DefaultBlockBatchSize
	}
	if chain.PollIntervalMs <= 0 {
		chain.PollIntervalMs = DefaultPollIntervalMs
	}
	if chain.RetryBackoffSeconds <= 0 {
		chain.RetryBackoffSeconds = DefaultRetryBackoffSeconds
	}
	if chain.FillCooldownSeconds <= 0 {
		chain.FillCooldownSeconds = DefaultFillCooldownSeconds
	}
	return nil
}

// Validate applies defaults and checks the configuration.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// FilePath returns <basePath>/config/ilayer_config.json.
func FilePath(basePath string) string {
	return filepath.Join(basePath, configSubdir, configFileName)
}

// Save writes the given config to <basePath>/config/ilayer_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(FilePath(basePath), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads the config from <basePath>/config/ilayer_config.json, applies
// ILAYER_* environment overrides, then validates it.
func Load(basePath string) (Config, error) {
	v := newViper()
	v.SetConfigFile(filepath.Clean(FilePath(basePath)))
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range globalKeys {
		_ = v.BindEnv(key)
	}
	return v
}
