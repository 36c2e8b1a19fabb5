package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eigerco/beerus-go/client/starknet"
)

func specVersionServer(t *testing.T, version string) *starknet.Provider {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": version}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(ts.Close)

	provider, err := starknet.NewProvider(ts.URL, ts.Client())
	require.NoError(t, err)
	return provider
}

func TestCheckSpecVersionAcceptsExactMatch(t *testing.T) {
	provider := specVersionServer(t, starknet.SpecVersion)
	require.NoError(t, checkSpecVersion(context.Background(), provider))
}

func TestCheckSpecVersionRejectsMismatch(t *testing.T) {
	provider := specVersionServer(t, "0.8.0")
	err := checkSpecVersion(context.Background(), provider)
	require.ErrorIs(t, err, ErrSpecMismatch)
}

func TestCheckSpecVersionRejectsPatchMismatch(t *testing.T) {
	provider := specVersionServer(t, "0.7.2")
	err := checkSpecVersion(context.Background(), provider)
	require.ErrorIs(t, err, ErrSpecMismatch)
}
