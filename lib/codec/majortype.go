// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import "fmt"

// MajorType is the CBOR major type (RFC 8949 §3.1) held in the top
// three bits of an item's initial byte.
type MajorType uint8

const (
	MajorUnsigned MajorType = 0
	MajorNegative MajorType = 1
	MajorBytes    MajorType = 2
	MajorText     MajorType = 3
	MajorArray    MajorType = 4
	MajorMap      MajorType = 5
	MajorTag      MajorType = 6
	MajorSimple   MajorType = 7
)

func (m MajorType) String() string {
	switch m {
	case MajorUnsigned:
		return "unsigned integer"
	case MajorNegative:
		return "negative integer"
	case MajorBytes:
		return "byte string"
	case MajorText:
		return "text string"
	case MajorArray:
		return "array"
	case MajorMap:
		return "map"
	case MajorTag:
		return "tag"
	case MajorSimple:
		return "simple value"
	default:
		return fmt.Sprintf("major type %d", uint8(m))
	}
}

// MajorTypeOf returns the major type of the first item in raw. The
// second result is false for empty input.
func MajorTypeOf(raw []byte) (MajorType, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	return MajorType(raw[0] >> 5), true
}

// IsBool reports whether raw is exactly the CBOR simple value true or
// false.
func IsBool(raw []byte) bool {
	return len(raw) == 1 && (raw[0] == 0xf4 || raw[0] == 0xf5)
}
