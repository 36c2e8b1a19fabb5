// Package exec adapts a provider-supplied contract class into the shape a
// local execution engine can run, and drives read-only calls and fee
// estimates against state.Reader's verified reads.
package exec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// ClassKind distinguishes the two contract class encodings StarkNet has
// shipped: legacy Cairo 0 classes and Sierra (Cairo 1+) classes.
type ClassKind int

const (
	// KindSierra is a Cairo 1+ class: program, entry points, and ABI are
	// usable as received.
	KindSierra ClassKind = iota
	// KindLegacy is a pre-Sierra Cairo 0 class: its program field arrives
	// base64+gzip-encoded and must be decoded before use.
	KindLegacy
)

func (k ClassKind) String() string {
	if k == KindSierra {
		return "sierra"
	}
	return "legacy"
}

// DecodedClass is a contract class ready to hand to an Engine: for a Sierra
// class, JSON is the class JSON unchanged; for a legacy class, JSON has had
// its program field replaced with the decoded, re-inlined program JSON.
type DecodedClass struct {
	Kind ClassKind
	JSON json.RawMessage
}

// sierraProbe checks for the one field that only exists on Sierra classes.
type sierraProbe struct {
	SierraProgram json.RawMessage `json:"sierra_program"`
}

// DecodeClass classifies raw as Sierra or legacy and, for legacy classes,
// decodes and re-inlines the program field so the result is immediately
// usable JSON rather than a base64+gzip blob. A Sierra class is passed
// through as-is.
func DecodeClass(raw []byte) (DecodedClass, error) {
	var probe sierraProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return DecodedClass{}, fmt.Errorf("exec: decoding class envelope: %w", err)
	}
	if len(probe.SierraProgram) > 0 {
		return DecodedClass{Kind: KindSierra, JSON: raw}, nil
	}

	inlined, err := inlineLegacyProgram(raw)
	if err != nil {
		return DecodedClass{}, fmt.Errorf("exec: inlining legacy program: %w", err)
	}
	return DecodedClass{Kind: KindLegacy, JSON: inlined}, nil
}

type legacyClassEnvelope struct {
	Program json.RawMessage `json:"program"`
}

// inlineLegacyProgram decodes a legacy class's base64+gzip-encoded `program`
// string field and replaces it in place with the decoded program's own JSON
// object, leaving every other field of raw untouched.
func inlineLegacyProgram(raw []byte) (json.RawMessage, error) {
	var envelope legacyClassEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}

	var encoded string
	if err := json.Unmarshal(envelope.Program, &encoded); err != nil {
		return nil, fmt.Errorf("program field is not a base64 string: %w", err)
	}

	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 program: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("opening gzip program: %w", err)
	}
	defer gz.Close()

	decoded, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("reading gzip program: %w", err)
	}

	var program json.RawMessage
	if err := json.Unmarshal(decoded, &program); err != nil {
		return nil, fmt.Errorf("decoded program is not valid JSON: %w", err)
	}

	var class map[string]json.RawMessage
	if err := json.Unmarshal(raw, &class); err != nil {
		return nil, err
	}
	class["program"] = program

	return json.Marshal(class)
}
