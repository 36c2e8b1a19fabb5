// Package config loads and validates Beerus's process configuration: the
// network to track, the upstream RPC endpoints, the local data directory,
// and the anchor poll interval.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/eigerco/beerus-go/l1"
)

// DefaultDataDir and DefaultPollSecs mirror the original Rust defaults
// (`DEFAULT_DATA_DIR`, `DEFAULT_POLL_SECS`).
const (
	DefaultDataDir  = "tmp"
	DefaultPollSecs = 5
)

// Config is the full process configuration. Each mapstructure tag is the
// lowercase key viper looks for in a config file; the upper-snake env vars
// that override them are listed in envBindings.
type Config struct {
	Network         string `mapstructure:"network" validate:"required,oneof=mainnet goerli sepolia"`
	EthExecutionRPC string `mapstructure:"eth_execution_rpc" validate:"required,url"`
	StarknetRPC     string `mapstructure:"starknet_rpc" validate:"required,url"`
	DataDir         string `mapstructure:"data_dir" validate:"required"`
	PollSecs        uint64 `mapstructure:"poll_secs" validate:"required,min=1"`
	RPCAddr         string `mapstructure:"rpc_addr" validate:"required"`
}

// Default returns the built-in defaults, matching the original
// `Config::default()` (mainnet, localhost endpoints, tmp data dir).
func Default() Config {
	return Config{
		Network:         "mainnet",
		EthExecutionRPC: "http://localhost:5054",
		StarknetRPC:     "http://localhost:9545",
		DataDir:         DefaultDataDir,
		PollSecs:        DefaultPollSecs,
		RPCAddr:         "127.0.0.1:9545",
	}
}

// envBindings lists the environment variable overrides the original Rust
// `Config::from_env` recognized, so the Go config layer accepts the same
// operator-facing surface.
var envBindings = map[string]string{
	"network":           "NETWORK",
	"eth_execution_rpc": "ETH_EXECUTION_RPC",
	"starknet_rpc":      "STARKNET_RPC",
	"data_dir":          "DATA_DIR",
	"poll_secs":         "POLL_SECS",
	"rpc_addr":          "RPC_ADDR",
}

// Load reads configuration from path (TOML, YAML, or JSON, auto-detected
// from its extension by viper) if non-empty, falling back to built-in
// defaults, then applies environment variable overrides, then validates.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("network", def.Network)
	v.SetDefault("eth_execution_rpc", def.EthExecutionRPC)
	v.SetDefault("starknet_rpc", def.StarknetRPC)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("poll_secs", def.PollSecs)
	v.SetDefault("rpc_addr", def.RPCAddr)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "config: reading %s", path)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, errors.Wrapf(err, "config: binding env %s", env)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshalling")
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs struct-tag validation over cfg and additionally confirms
// Network resolves to a known l1.Network.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "config: validation failed")
	}
	if _, ok := l1.ParseNetwork(strings.ToLower(cfg.Network)); !ok {
		return fmt.Errorf("config: unknown network %q", cfg.Network)
	}
	return nil
}

// ResolvedNetwork parses cfg.Network into an l1.Network, assuming Validate
// already succeeded.
func (c Config) ResolvedNetwork() l1.Network {
	n, _ := l1.ParseNetwork(strings.ToLower(c.Network))
	return n
}

// PollInterval converts PollSecs to a time.Duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollSecs) * time.Second
}
