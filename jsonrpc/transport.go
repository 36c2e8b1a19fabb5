package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// HTTPHandler serves the dispatch table over plain HTTP POST, one request
// body per call (batches are split sequentially; StarkNet RPC traffic is
// dominated by single calls, so no effort is spent parallelizing a batch).
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, &Response{JSONRPC: "2.0", Error: &Error{Code: CodeParseError, Message: "parse error"}})
			return
		}

		if len(raw) > 0 && raw[0] == '[' {
			var reqs []Request
			if err := json.Unmarshal(raw, &reqs); err != nil {
				writeJSON(w, &Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: "invalid batch"}})
				return
			}
			resps := make([]*Response, 0, len(reqs))
			for i := range reqs {
				resp := s.Handle(r.Context(), &reqs[i])
				if !reqs[i].IsNotification() {
					resps = append(resps, resp)
				}
			}
			writeJSON(w, resps)
			return
		}

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			writeJSON(w, &Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: "invalid request"}})
			return
		}
		resp := s.Handle(r.Context(), &req)
		if req.IsNotification() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, resp)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// WebSocketHandler upgrades and serves the same dispatch table over a
// persistent websocket connection, one JSON message per call, for clients
// that want subscription-style long-lived sessions.
func (s *Server) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow() //nolint:errcheck

		ctx := r.Context()
		for {
			var req Request
			if err := readJSON(ctx, conn, &req); err != nil {
				return
			}
			resp := s.Handle(ctx, &req)
			if req.IsNotification() {
				continue
			}
			if err := writeWS(ctx, conn, resp); err != nil {
				return
			}
		}
	})
}

func readJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeWS(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
