// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ctap implements "arc ctap": offline decoding of CTAP2
// authenticator responses captured from a security key or a log.
package ctap

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/arc/cmd/arc/cli"
	"github.com/bureau-foundation/arc/ctap"
	"github.com/bureau-foundation/arc/lib/codec"
)

// Command returns the "ctap" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "ctap",
		Summary: "Decode CTAP2 authenticator responses",
		Description: `Decode CTAP2 authenticator responses to JSON or CBOR diagnostic
notation.

Input is read from the trailing FILE argument or stdin. With --hex the
input is hex text (whitespace ignored). With --with-status the first
byte is the CTAP status code, as it appears on the wire; otherwise the
input is the CBOR body of a successful response.`,
		Subcommands: []*cli.Command{
			decodeCommand(),
			diagCommand(),
		},
	}
}

// kinds maps --kind values to decoders.
var kinds = map[string]func(ctap.Status, []byte) (any, error){
	"make-credential": func(status ctap.Status, body []byte) (any, error) {
		return ctap.DecodeMakeCredentialResponse(status, body)
	},
	"get-assertion": func(status ctap.Status, body []byte) (any, error) {
		return ctap.DecodeGetAssertionResponse(status, body)
	},
	"get-info": func(status ctap.Status, body []byte) (any, error) {
		return ctap.DecodeGetInfoResponse(status, body)
	},
}

type decodeParams struct {
	Kind       string `flag:"kind,k" desc:"response kind: make-credential, get-assertion, or get-info"`
	HexInput   bool   `flag:"hex,x" desc:"treat input as hex text"`
	WithStatus bool   `flag:"with-status" desc:"input starts with the CTAP status byte"`
}

func decodeCommand() *cli.Command {
	var params decodeParams
	return &cli.Command{
		Name:    "decode",
		Summary: "Decode a response to JSON",
		Usage:   "arc ctap decode --kind KIND [--hex] [--with-status] [FILE]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("decode", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Decode a captured getInfo response, status byte included",
				Command:     "arc ctap decode --kind get-info --with-status getinfo.bin",
			},
			{
				Description: "Decode a hex assertion body from a log line",
				Command:     "echo 'a3 02 58 25 ...' | arc ctap decode --kind get-assertion --hex",
			},
		},
		Run: func(args []string) error {
			data, err := cli.ReadInput(args, os.Stdin, params.HexInput)
			if err != nil {
				return err
			}
			return decodeResponse(data, params.Kind, params.WithStatus, os.Stdout)
		},
	}
}

// decodeResponse decodes data as kind and writes it as JSON to w.
func decodeResponse(data []byte, kind string, withStatus bool, w io.Writer) error {
	decode, ok := kinds[kind]
	if !ok {
		return fmt.Errorf("--kind must be one of %s (got %q)", kindNames(), kind)
	}

	status, body := ctap.StatusSuccess, data
	if withStatus {
		var err error
		if status, body, err = ctap.SplitResponse(data); err != nil {
			return err
		}
	}

	response, err := decode(status, body)
	if err != nil {
		return err
	}
	return cli.WriteJSON(w, response)
}

func kindNames() string {
	return strings.Join([]string{"make-credential", "get-assertion", "get-info"}, ", ")
}

type diagParams struct {
	HexInput bool `flag:"hex,x" desc:"treat input as hex text"`
}

func diagCommand() *cli.Command {
	var params diagParams
	return &cli.Command{
		Name:    "diag",
		Summary: "Show a response in CBOR diagnostic notation",
		Description: `Write RFC 8949 diagnostic notation for the input, one line per CBOR
data item. Unlike JSON, diagnostic notation keeps the integer map keys
CTAP2 uses and distinguishes byte strings from text strings. A leading
status byte shows up as its own item: 0 for success.`,
		Usage: "arc ctap diag [--hex] [FILE]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("diag", &params)
		},
		Run: func(args []string) error {
			data, err := cli.ReadInput(args, os.Stdin, params.HexInput)
			if err != nil {
				return err
			}
			return diagnose(data, os.Stdout)
		},
	}
}

// diagnose writes diagnostic notation for each item in the CBOR
// sequence data.
func diagnose(data []byte, w io.Writer) error {
	remaining := data
	for len(remaining) > 0 {
		notation, rest, err := codec.DiagnoseFirst(remaining)
		if err != nil {
			return fmt.Errorf("diagnose CBOR at byte %d: %w", len(data)-len(remaining), err)
		}
		if _, err := fmt.Fprintln(w, notation); err != nil {
			return err
		}
		remaining = rest
	}
	return nil
}
