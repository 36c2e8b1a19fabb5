// Command beerus runs the StarkNet light client: it anchors to L1, serves
// proof-verified reads over JSON-RPC, and proxies everything else to an
// untrusted StarkNet full node.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/eigerco/beerus-go/config"
	"github.com/eigerco/beerus-go/node"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		// Not fatal: GOMAXPROCS just stays at the runtime default.
		_ = err
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "beerus",
		Short: "Trust-minimized StarkNet light client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML/YAML/JSON config file")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("loaded configuration", zap.String("network", cfg.Network), zap.String("rpc_addr", cfg.RPCAddr))

	reg := prometheus.NewRegistry()
	n, err := node.New(cfg, log, reg)
	if err != nil {
		log.Error("failed to construct node", zap.Error(err))
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := n.Start(ctx); err != nil {
		log.Error("node exited with error", zap.Error(err))
		return err
	}
	return nil
}
