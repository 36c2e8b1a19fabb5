package l1_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/l1"
	"github.com/eigerco/beerus-go/metrics"
)

type fakeReader struct {
	states []l1.State
	idx    atomic.Int64
}

func (f *fakeReader) ReadState(ctx context.Context) (l1.State, error) {
	i := f.idx.Add(1) - 1
	if int(i) >= len(f.states) {
		i = int64(len(f.states) - 1)
	}
	return f.states[i], nil
}

func newTestRegistry() *metrics.Registry {
	return metrics.NewRegistry(prometheus.NewRegistry())
}

func TestAnchorInitialSync(t *testing.T) {
	reader := &fakeReader{states: []l1.State{
		{BlockNumber: 10, BlockHash: felt.FromUint64(1), Root: felt.FromUint64(2)},
	}}
	a := l1.NewAnchor(reader, zap.NewNop(), newTestRegistry())

	require.NoError(t, a.Start(context.Background(), time.Hour))
	state, ready := a.Current()
	assert.True(t, ready)
	assert.Equal(t, uint64(10), state.BlockNumber)
}

func TestAnchorDiscardsNonAdvancingRead(t *testing.T) {
	reader := &fakeReader{states: []l1.State{
		{BlockNumber: 10, BlockHash: felt.FromUint64(1), Root: felt.FromUint64(2)},
		{BlockNumber: 9, BlockHash: felt.FromUint64(3), Root: felt.FromUint64(4)},
	}}
	a := l1.NewAnchor(reader, zap.NewNop(), newTestRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, time.Millisecond))

	// A third read starts only after the second poll (block 9) has been
	// fully handled.
	require.Eventually(t, func() bool { return reader.idx.Load() >= 3 }, time.Second, time.Millisecond)

	state, _ := a.Current()
	assert.Equal(t, uint64(10), state.BlockNumber)
}
