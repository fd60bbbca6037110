// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements "arc session": start, stop and inspect the
// container session hosted by arc-daemon through its control socket.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/arc/arc"
	"github.com/bureau-foundation/arc/cmd/arc/cli"
	"github.com/bureau-foundation/arc/lib/config"
	"github.com/bureau-foundation/arc/lib/service"
)

// callTimeout bounds one control socket round trip. Start and stop
// return as soon as the daemon has accepted the request.
const callTimeout = 30 * time.Second

// ControlSocket holds the flag every session command shares. It is
// exported so flag binding can reach the embedded field.
type ControlSocket struct {
	Socket string `flag:"socket" desc:"daemon control socket (default: daemon.control_socket from config)"`
}

// client resolves the socket path and returns a control client.
func (c *ControlSocket) client() (*service.Client, error) {
	if c.Socket != "" {
		return service.NewClient(c.Socket), nil
	}
	path, err := defaultSocketPath()
	if err != nil {
		return nil, err
	}
	return service.NewClient(path), nil
}

// defaultSocketPath reads ARC_CONFIG when set, otherwise resolves the
// built-in default.
func defaultSocketPath() (string, error) {
	if os.Getenv("ARC_CONFIG") != "" {
		cfg, err := config.Load()
		if err != nil {
			return "", fmt.Errorf("loading config: %w", err)
		}
		return cfg.Daemon.ControlSocket, nil
	}
	cfg := config.Default()
	cfg.Resolve()
	return cfg.Daemon.ControlSocket, nil
}

// Command returns the "session" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Summary: "Start, stop, and inspect the ARC container session",
		Description: `Control the container session hosted by arc-daemon.

The daemon hosts at most one session. "start" creates a session when
none exists or the previous one stopped, and upgrades a running mini
instance when asked for full mode. "stop" requests an orderly stop;
the daemon forces the session down if it has not stopped within its
configured stop timeout.`,
		Subcommands: []*cli.Command{
			startCommand(),
			stopCommand(),
			statusCommand(),
		},
	}
}

type startParams struct {
	ControlSocket
	cli.JSONOutput
	Mode string `flag:"mode" desc:"instance mode: mini or full (default: daemon.default_mode)"`
}

func startCommand() *cli.Command {
	var params startParams
	return &cli.Command{
		Name:    "start",
		Summary: "Start the session or upgrade it to full",
		Usage:   "arc session start [--mode mini|full] [--socket PATH]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("start", &params)
		},
		Examples: []cli.Example{
			{Description: "Start a mini instance", Command: "arc session start --mode mini"},
			{Description: "Upgrade the running instance", Command: "arc session start --mode full"},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			fields := map[string]any{}
			if params.Mode != "" {
				if _, err := arc.ParseMode(params.Mode); err != nil {
					return err
				}
				fields["mode"] = params.Mode
			}
			client, err := params.client()
			if err != nil {
				return err
			}
			return callAndPrint(client, "start", fields, &params.JSONOutput, os.Stdout)
		},
	}
}

type stopParams struct {
	ControlSocket
	cli.JSONOutput
}

func stopCommand() *cli.Command {
	var params stopParams
	return &cli.Command{
		Name:    "stop",
		Summary: "Request an orderly stop of the session",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("stop", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			client, err := params.client()
			if err != nil {
				return err
			}
			return callAndPrint(client, "stop", nil, &params.JSONOutput, os.Stdout)
		},
	}
}

type statusParams struct {
	ControlSocket
	cli.JSONOutput
}

func statusCommand() *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show the current session",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Examples: []cli.Example{
			{Description: "Machine-readable status", Command: "arc session status --json"},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			client, err := params.client()
			if err != nil {
				return err
			}
			return callAndPrint(client, "status", nil, &params.JSONOutput, os.Stdout)
		},
	}
}

// callAndPrint performs action and writes the returned status as JSON
// or as a table.
func callAndPrint(client *service.Client, action string, fields map[string]any, output *cli.JSONOutput, w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	var status arc.Status
	if err := client.Call(ctx, action, fields, &status); err != nil {
		return err
	}
	if done, err := output.EmitJSON(w, status); done {
		return err
	}
	return writeStatus(w, status)
}

func writeStatus(w io.Writer, status arc.Status) error {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	row := func(key, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", key, value)
		}
	}
	row("session", status.SessionID)
	row("state", status.State)
	row("mode", status.TargetMode)
	row("instance", status.InstanceID)
	if status.StopRequested {
		row("stop requested", "yes")
	}
	if status.StopReason != "" {
		row("stop reason", status.StopReason)
		row("was running", fmt.Sprint(status.WasRunning))
	}
	if bootTime := status.BootTime(); bootTime > 0 {
		row("boot time", bootTime.Round(time.Millisecond).String())
	}
	if !status.StartedAt.IsZero() {
		row("started", status.StartedAt.Format(time.RFC3339))
	}
	if !status.StoppedAt.IsZero() {
		row("stopped", status.StoppedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
