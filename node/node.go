// Package node wires every layer of the client into a single running
// process: the L1 anchor poll loop, the verified StarkNet state reader, the
// local executor, and the JSON-RPC mediator served over HTTP and websocket.
//
// There is no juno cmd/node precedent for this wiring in the retrieved
// reference material (only rpc/chain.go, rpc/estimate_fee.go, and
// core/snap_server.go were pulled from juno), so this package is authored
// fresh, following the ambient process-lifecycle idiom the rest of the
// corpus shows: a single constructor that dials every collaborator and
// fails fast, plus Start/Close for a clean run loop.
package node

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/eigerco/beerus-go/client/starknet"
	"github.com/eigerco/beerus-go/config"
	"github.com/eigerco/beerus-go/exec"
	"github.com/eigerco/beerus-go/jsonrpc"
	"github.com/eigerco/beerus-go/l1"
	"github.com/eigerco/beerus-go/metrics"
	"github.com/eigerco/beerus-go/restapi"
	"github.com/eigerco/beerus-go/rpc"
	"github.com/eigerco/beerus-go/state"
)

// ErrSpecMismatch is returned by New when the upstream StarkNet provider's
// reported JSON-RPC spec version doesn't exactly match the version this
// build was compiled against. The client has no way to know whether a
// differing spec changes wire formats it relies on for verification, so it
// refuses to start rather than risk silently misinterpreting a proof.
var ErrSpecMismatch = errors.New("node: upstream spec version mismatch")

// Node owns every long-lived collaborator and the HTTP server exposing the
// JSON-RPC and REST surfaces.
type Node struct {
	cfg    config.Config
	log    *zap.Logger
	m      *metrics.Registry
	anchor *l1.Anchor
	server *http.Server
}

// New dials every upstream (L1 execution client, L2 StarkNet provider),
// checks the spec-version pin, and assembles the full dispatch table. It
// does not start the anchor poll loop or the HTTP listener; call Start for
// that.
func New(cfg config.Config, log *zap.Logger, promReg *prometheus.Registry) (*Node, error) {
	m := metrics.NewRegistry(promReg)

	ethClient, err := ethclient.Dial(cfg.EthExecutionRPC)
	if err != nil {
		return nil, errors.Wrap(err, "node: dialing L1 execution client")
	}

	network := cfg.ResolvedNetwork()
	coreContract, err := l1.NewCoreContract(ethClient, network.CoreContractAddress())
	if err != nil {
		return nil, errors.Wrap(err, "node: constructing core contract reader")
	}

	anchor := l1.NewAnchor(coreContract, log, m)

	provider, err := starknet.NewProvider(cfg.StarknetRPC, http.DefaultClient)
	if err != nil {
		return nil, errors.Wrap(err, "node: constructing starknet provider")
	}

	if err := checkSpecVersion(context.Background(), provider); err != nil {
		return nil, err
	}

	reader, err := state.NewReader(provider, anchor, m)
	if err != nil {
		return nil, errors.Wrap(err, "node: constructing state reader")
	}

	// No Cairo VM binding is wired in this build; exec.Executor still
	// resolves and decodes classes, but Call/EstimateFee report
	// exec.ErrEngineNotConfigured until a real engine is supplied.
	executor := exec.NewExecutor(reader, nil)

	srv := jsonrpc.NewServer(log)
	med := rpc.New(anchor, provider, reader, executor, log, m)
	med.Register(srv)

	mux := http.NewServeMux()
	mux.Handle("/", srv.HTTPHandler())
	mux.Handle("/ws", srv.WebSocketHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	restapi.New(reader, anchor, log).Mount(mux)

	handler := cors.New(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{http.MethodGet, http.MethodPost}}).Handler(mux)

	return &Node{
		cfg:    cfg,
		log:    log,
		m:      m,
		anchor: anchor,
		server: &http.Server{Addr: cfg.RPCAddr, Handler: handler},
	}, nil
}

// checkSpecVersion fetches the upstream's reported spec version and fails
// unless it's exactly equal to the version this build is pinned to.
func checkSpecVersion(ctx context.Context, provider *starknet.Provider) error {
	reported, err := provider.SpecVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "node: fetching upstream spec version")
	}

	want, err := semver.NewVersion(starknet.SpecVersion)
	if err != nil {
		return errors.Wrap(err, "node: parsing pinned spec version")
	}
	got, err := semver.NewVersion(reported)
	if err != nil {
		return errors.Wrapf(err, "node: parsing upstream spec version %q", reported)
	}

	if !want.Equal(got) {
		return fmt.Errorf("%w: pinned %s, upstream reports %s", ErrSpecMismatch, want, got)
	}
	return nil
}

// Start begins the anchor poll loop and the HTTP listener. It blocks until
// ctx is cancelled or the listener fails.
func (n *Node) Start(ctx context.Context) error {
	if err := n.anchor.Start(ctx, n.cfg.PollInterval()); err != nil {
		return errors.Wrap(err, "node: starting anchor")
	}

	n.log.Info("beerus listening", zap.String("addr", n.cfg.RPCAddr), zap.String("network", n.cfg.Network))

	errCh := make(chan error, 1)
	go func() {
		if err := n.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return n.Close(context.Background())
	case err := <-errCh:
		return errors.Wrap(err, "node: http server")
	}
}

// Close gracefully shuts down the HTTP server.
func (n *Node) Close(ctx context.Context) error {
	return n.server.Shutdown(ctx)
}
