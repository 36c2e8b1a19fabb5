package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beerus-go/config"
	"github.com/eigerco/beerus-go/l1"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, l1.Mainnet, cfg.ResolvedNetwork())
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beerus.toml")
	contents := `
network = "goerli"
eth_execution_rpc = "http://localhost:5054"
starknet_rpc = "http://localhost:9545"
data_dir = "/tmp/beerus"
poll_secs = 10
rpc_addr = "0.0.0.0:9545"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "goerli", cfg.Network)
	assert.Equal(t, uint64(10), cfg.PollSecs)
}

func TestValidateRejectsUnknownNetwork(t *testing.T) {
	cfg := config.Default()
	cfg.Network = "not-a-network"
	err := config.Validate(cfg)
	assert.Error(t, err)
}

func TestValidateRejectsMissingRPC(t *testing.T) {
	cfg := config.Default()
	cfg.StarknetRPC = ""
	err := config.Validate(cfg)
	assert.Error(t, err)
}
