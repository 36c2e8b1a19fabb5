package l1

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/metrics"
)

// State is the anchored L2 state snapshot: the block and state root every
// verified read is checked against.
type State struct {
	BlockNumber uint64
	BlockHash   felt.Felt
	Root        felt.Felt
}

// StateReader reads the current L1-derived L2 state. A *CoreContract
// satisfies it; tests substitute a fake.
type StateReader interface {
	ReadState(ctx context.Context) (State, error)
}

// Anchor holds the single process-wide State snapshot. The poll loop is its
// sole writer; every verified RPC method is a reader. Readers never block
// each other or the writer for longer than a snapshot copy.
type Anchor struct {
	mu      sync.RWMutex
	current State
	ready   bool

	reader StateReader
	log    *zap.Logger
	m      *metrics.Registry
}

// NewAnchor constructs an anchor that will be populated by Start.
func NewAnchor(reader StateReader, log *zap.Logger, m *metrics.Registry) *Anchor {
	return &Anchor{reader: reader, log: log, m: m}
}

// Current returns the most recently anchored state. The second return
// value is false if the anchor has not completed its first sync yet.
func (a *Anchor) Current() (State, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current, a.ready
}

// Start performs the initial sync as one synchronous read, returning its
// error if that read fails, and on success launches the periodic poll loop
// in the background, panic-isolated so a single bad cycle cannot take the
// process down.
func (a *Anchor) Start(ctx context.Context, pollInterval time.Duration) error {
	if err := a.pollOnce(ctx); err != nil {
		return err
	}

	go func() {
		var catcher panics.Catcher
		catcher.Try(func() { a.pollLoop(ctx, pollInterval) })
		if r := catcher.Recovered(); r != nil {
			a.log.Error("anchor poll loop panicked, anchor is now frozen", zap.Any("panic", r.Value))
		}
	}()
	return nil
}

func (a *Anchor) pollLoop(ctx context.Context, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.pollOnce(ctx); err != nil {
				a.log.Warn("anchor poll failed, keeping previous anchor", zap.Error(err))
				a.m.AnchorFailureTotal.Inc()
			}
		}
	}
}

// pollOnce reads L1 once and, if the reported block number advanced,
// installs it as the new anchor. A non-advancing or regressing read is
// discarded rather than applied: it would mean the consensus light client
// gave us stale or reorged data, and downgrading the anchor would let an
// already-served verified response become retroactively wrong.
func (a *Anchor) pollOnce(ctx context.Context) error {
	next, err := a.reader.ReadState(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ready && next.BlockNumber <= a.current.BlockNumber {
		a.m.AnchorStaleTotal.Inc()
		return nil
	}

	a.current = next
	a.ready = true
	a.m.AnchorBlockNumber.Set(float64(next.BlockNumber))
	a.m.AnchorUpdateTotal.Inc()
	return nil
}
