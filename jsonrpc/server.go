package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Parameter describes one positional or named argument a registered method
// accepts. Optional parameters may be omitted from the tail of a params
// array, or absent from a params object.
type Parameter struct {
	Name     string
	Optional bool
}

// Method binds a JSON-RPC method name to a Go function. Handler must be a
// func whose first argument may optionally be context.Context, whose
// remaining arguments line up 1:1 with Params, and which returns exactly
// (result any, rpcErr *Error).
type Method struct {
	Name    string
	Params  []Parameter
	Handler any
}

// Server is a method dispatch table: it decodes a JSON-RPC request's
// params into a registered handler's argument list by reflection, calls it,
// and re-encodes the result. Juno dispatches starknet_* RPC methods this
// way instead of a hand-written switch per method; this repo reuses the
// idiom for the same reason — one registration call per method, uniform
// error handling.
type Server struct {
	mu      sync.RWMutex
	methods map[string]methodEntry
	raw     map[string]RawHandler
	log     *zap.Logger
}

// RawHandler forwards a method's params verbatim, for methods whose
// parameter shape this server never inspects or re-encodes — a pure
// pass-through proxy to an upstream.
type RawHandler func(ctx context.Context, params json.RawMessage) (json.RawMessage, *Error)

// RegisterRawMethod registers a pass-through handler, bypassing the
// reflection-based argument binding RegisterMethod uses. Checked only if no
// typed Method is registered under the same name.
func (s *Server) RegisterRawMethod(name string, handler RawHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[name] = handler
}

type methodEntry struct {
	method     Method
	fn         reflect.Value
	wantsCtx   bool
	argTypes   []reflect.Type
}

// NewServer constructs an empty dispatch table.
func NewServer(log *zap.Logger) *Server {
	return &Server{methods: make(map[string]methodEntry), raw: make(map[string]RawHandler), log: log}
}

// RegisterMethod adds m to the dispatch table. It panics on a malformed
// Handler signature, since that is a programming error caught at startup,
// never at request time.
func (s *Server) RegisterMethod(m Method) {
	fn := reflect.ValueOf(m.Handler)
	if fn.Kind() != reflect.Func {
		panic(fmt.Sprintf("jsonrpc: method %q: Handler is not a func", m.Name))
	}
	fnType := fn.Type()
	if fnType.NumOut() != 2 {
		panic(fmt.Sprintf("jsonrpc: method %q: Handler must return (result, *jsonrpc.Error)", m.Name))
	}

	wantsCtx := fnType.NumIn() > 0 && fnType.In(0) == reflect.TypeOf((*context.Context)(nil)).Elem()

	argStart := 0
	if wantsCtx {
		argStart = 1
	}
	argTypes := make([]reflect.Type, 0, fnType.NumIn()-argStart)
	for i := argStart; i < fnType.NumIn(); i++ {
		argTypes = append(argTypes, fnType.In(i))
	}
	if len(argTypes) != len(m.Params) {
		panic(fmt.Sprintf("jsonrpc: method %q: %d Params declared but Handler takes %d", m.Name, len(m.Params), len(argTypes)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[m.Name] = methodEntry{method: m, fn: fn, wantsCtx: wantsCtx, argTypes: argTypes}
}

// ErrMethodNotFound is the sentinel error returned for an unregistered
// method name.
var ErrMethodNotFound = &Error{Code: CodeMethodNotFound, Message: "Method not found"}

// Handle decodes and dispatches a single request and always returns a
// Response; for a notification (no ID) the caller discards it.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	resp := &Response{JSONRPC: "2.0", ID: req.ID}

	s.mu.RLock()
	entry, ok := s.methods[req.Method]
	rawHandler, rawOK := s.raw[req.Method]
	s.mu.RUnlock()

	if !ok {
		if !rawOK {
			resp.Error = ErrMethodNotFound
			return resp
		}
		result, rpcErr := rawHandler(ctx, req.Params)
		if rpcErr != nil {
			resp.Error = rpcErr
			return resp
		}
		resp.Result = result
		return resp
	}

	args, rpcErr := bindArgs(entry, req.Params)
	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}

	callArgs := make([]reflect.Value, 0, len(args)+1)
	if entry.wantsCtx {
		callArgs = append(callArgs, reflect.ValueOf(ctx))
	}
	callArgs = append(callArgs, args...)

	out := entry.fn.Call(callArgs)
	if errVal := out[1]; !errVal.IsNil() {
		resp.Error = errVal.Interface().(*Error)
		return resp
	}

	result := out[0].Interface()
	encoded, err := json.Marshal(result)
	if err != nil {
		resp.Error = &Error{Code: CodeInternalError, Message: "failed to encode result", Data: err.Error()}
		return resp
	}
	resp.Result = encoded
	return resp
}

func bindArgs(entry methodEntry, raw json.RawMessage) ([]reflect.Value, *Error) {
	n := len(entry.argTypes)
	args := make([]reflect.Value, n)

	if len(raw) == 0 {
		if mandatoryCount(entry.method.Params) > 0 {
			return nil, &Error{Code: CodeInvalidParams, Message: "missing required params"}
		}
		for i, t := range entry.argTypes {
			args[i] = reflect.Zero(t)
		}
		return args, nil
	}

	switch raw[0] {
	case '[':
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "params is not an array", Data: err.Error()}
		}
		if len(positional) > n {
			return nil, &Error{Code: CodeInvalidParams, Message: "too many params"}
		}
		for i, t := range entry.argTypes {
			if i >= len(positional) {
				if !entry.method.Params[i].Optional {
					return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("missing required param %q", entry.method.Params[i].Name)}
				}
				args[i] = reflect.Zero(t)
				continue
			}
			v, err := decodeInto(positional[i], t)
			if err != nil {
				return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("param %q: %v", entry.method.Params[i].Name, err)}
			}
			args[i] = v
		}
		return args, nil

	case '{':
		var named map[string]json.RawMessage
		if err := json.Unmarshal(raw, &named); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "params is not an object", Data: err.Error()}
		}
		for i, t := range entry.argTypes {
			p := entry.method.Params[i]
			val, present := named[p.Name]
			if !present {
				if !p.Optional {
					return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("missing required param %q", p.Name)}
				}
				args[i] = reflect.Zero(t)
				continue
			}
			v, err := decodeInto(val, t)
			if err != nil {
				return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("param %q: %v", p.Name, err)}
			}
			args[i] = v
		}
		return args, nil

	default:
		return nil, &Error{Code: CodeInvalidParams, Message: "params must be an array or object"}
	}
}

func decodeInto(raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func mandatoryCount(params []Parameter) int {
	n := 0
	for _, p := range params {
		if !p.Optional {
			n++
		}
	}
	return n
}
