// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/bureau-foundation/arc/lib/netutil"
)

// ReadInput reads the command's input from the file named by the
// single positional argument, or from stdin when there is none. With
// hexMode the input is hex text; whitespace between digits is ignored.
// Input larger than netutil.MaxPayloadSize is rejected.
func ReadInput(args []string, stdin io.Reader, hexMode bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch len(args) {
	case 0:
		data, err = netutil.ReadLimited(stdin, 0)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	case 1:
		file, openErr := os.Open(args[0])
		if openErr != nil {
			return nil, openErr
		}
		data, err = netutil.ReadLimited(file, 0)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args[0], err)
		}
	default:
		return nil, fmt.Errorf("expected at most one input file, got %d arguments", len(args))
	}

	if hexMode {
		return decodeHexInput(data)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	return data, nil
}

// decodeHexInput strips whitespace from hex-encoded input and decodes
// it ("a1 63 6b 65 79" or "a1636b6579").
func decodeHexInput(data []byte) ([]byte, error) {
	cleaned := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, data)

	if len(cleaned) == 0 {
		return nil, fmt.Errorf("empty input after stripping whitespace from hex")
	}

	decoded := make([]byte, hex.DecodedLen(len(cleaned)))
	count, err := hex.Decode(decoded, cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return decoded[:count], nil
}
