// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/arc/cmd/arc/cli"
	"github.com/bureau-foundation/arc/cmd/arc/ctap"
	"github.com/bureau-foundation/arc/cmd/arc/session"
	"github.com/bureau-foundation/arc/lib/process"
	"github.com/bureau-foundation/arc/lib/version"
)

func main() {
	if err := root().Execute(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func root() *cli.Command {
	return &cli.Command{
		Name:    "arc",
		Summary: "Control the ARC container session and decode CTAP2 responses",
		Subcommands: []*cli.Command{
			session.Command(),
			ctap.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					if len(args) > 0 {
						return fmt.Errorf("unexpected argument %q", args[0])
					}
					version.Print(os.Stdout, "arc")
					return nil
				},
			},
		},
	}
}
