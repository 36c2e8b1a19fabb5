// Package restapi exposes a small convenience HTTP surface over the
// verified state reader, for callers who would rather not speak JSON-RPC.
// It translates straight into the same state.Reader calls the mediator
// uses, so every response carries the same proof-verification guarantee.
package restapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/l1"
	"github.com/eigerco/beerus-go/state"
)

// API serves the REST convenience surface.
type API struct {
	reader *state.Reader
	anchor *l1.Anchor
	log    *zap.Logger
}

// New constructs an API over reader and anchor.
func New(reader *state.Reader, anchor *l1.Anchor, log *zap.Logger) *API {
	return &API{reader: reader, anchor: anchor, log: log}
}

// Mount registers every REST route on mux under /starknet and /status.
func (a *API) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/starknet/storage", a.getStorage)
	mux.HandleFunc("/starknet/nonce", a.getNonce)
	mux.HandleFunc("/starknet/class_hash", a.getClassHash)
	mux.HandleFunc("/status", a.getStatus)
}

func (a *API) getStorage(w http.ResponseWriter, r *http.Request) {
	address, err := parseFeltQuery(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	key, err := parseFeltQuery(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	value, err := a.reader.StorageAt(r.Context(), address, key)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, map[string]string{"value": value.ToHex()})
}

func (a *API) getNonce(w http.ResponseWriter, r *http.Request) {
	address, err := parseFeltQuery(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	nonce, err := a.reader.Nonce(r.Context(), address)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, map[string]string{"nonce": nonce.ToHex()})
}

func (a *API) getClassHash(w http.ResponseWriter, r *http.Request) {
	address, err := parseFeltQuery(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	classHash, err := a.reader.ClassHashAt(r.Context(), address)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, map[string]string{"class_hash": classHash.ToHex()})
}

func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	st, synced := a.anchor.Current()
	writeJSON(w, map[string]any{
		"synced":       synced,
		"block_number": st.BlockNumber,
		"block_hash":   st.BlockHash.ToHex(),
		"root":         st.Root.ToHex(),
	})
}

func parseFeltQuery(r *http.Request, name string) (felt.Felt, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return felt.Felt{}, errMissingParam(name)
	}
	return felt.FromHex(raw)
}

type errMissingParam string

func (e errMissingParam) Error() string { return "restapi: missing query parameter " + string(e) }

func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrContractNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrNotSynced):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
