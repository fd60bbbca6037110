// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"fmt"
	"io"
)

// MaxPayloadSize bounds a single peer-supplied payload: one bridge
// message, one control request, or one authenticator response read
// by the CLI.
const MaxPayloadSize int64 = 1 << 20

// ReadLimited reads r to EOF and fails if the content exceeds limit
// bytes. A limit <= 0 uses MaxPayloadSize.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxPayloadSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("payload exceeds %d bytes", limit)
	}
	return data, nil
}
