// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ctap

import (
	"fmt"

	"github.com/bureau-foundation/arc/lib/codec"
)

// field declares one key of a CBOR map: its name for error messages,
// the major type its value must have, and whether it must be present.
// A field of MajorSimple must be a boolean.
type field[K comparable] struct {
	key      K
	name     string
	major    codec.MajorType
	required bool
}

// decodeMap decodes data as a CBOR map and checks it against fields.
// The returned values are still encoded.
func decodeMap[K comparable](data []byte, what string, fields []field[K]) (map[K]codec.RawMessage, error) {
	major, ok := codec.MajorTypeOf(data)
	if !ok {
		return nil, fmt.Errorf("%w: %s: empty body", ErrMalformedResponse, what)
	}
	if major != codec.MajorMap {
		return nil, fmt.Errorf("%w: %s: expected map, got %s", ErrMalformedResponse, what, major)
	}

	var decoded map[any]codec.RawMessage
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, what, err)
	}
	// Keys of another type (text keys in an integer-keyed message,
	// negative integers) are unknown keys and are skipped.
	entries := make(map[K]codec.RawMessage, len(decoded))
	for key, value := range decoded {
		if k, ok := key.(K); ok {
			entries[k] = value
		}
	}
	if err := checkFields(entries, what, fields); err != nil {
		return nil, err
	}
	return entries, nil
}

// checkFields validates presence and major type for every declared
// field before anything is decoded.
func checkFields[K comparable](entries map[K]codec.RawMessage, what string, fields []field[K]) error {
	for _, f := range fields {
		raw, present := entries[f.key]
		if !present {
			if f.required {
				return fmt.Errorf("%w: %s: missing required %s (key %v)", ErrMalformedResponse, what, f.name, f.key)
			}
			continue
		}
		major, _ := codec.MajorTypeOf(raw)
		if major != f.major || (f.major == codec.MajorSimple && !codec.IsBool(raw)) {
			return fmt.Errorf("%w: %s: %s (key %v) must be %s, got %s",
				ErrMalformedResponse, what, f.name, f.key, typeName(f.major), describe(raw))
		}
	}
	return nil
}

func typeName(major codec.MajorType) string {
	if major == codec.MajorSimple {
		return "boolean"
	}
	return major.String()
}

func describe(raw []byte) string {
	if codec.IsBool(raw) {
		return "boolean"
	}
	major, _ := codec.MajorTypeOf(raw)
	return major.String()
}

// decodeValue decodes a field already checked by checkFields. Element
// types inside arrays are not covered by the major-type check, so
// errors here are still malformed input.
func decodeValue(raw codec.RawMessage, what, name string, v any) error {
	if err := codec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %s: %v", ErrMalformedResponse, what, name, err)
	}
	return nil
}
