// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/arc/arc"
	"github.com/bureau-foundation/arc/cmd/arc/cli"
	"github.com/bureau-foundation/arc/lib/codec"
	"github.com/bureau-foundation/arc/lib/service"
	"github.com/bureau-foundation/arc/lib/testutil"
)

var started = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// serveStatus runs a control socket whose every action echoes status,
// sending the requested mode on modes when it is non-nil.
func serveStatus(t *testing.T, status arc.Status, modes chan<- string) *service.Client {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "control.sock")
	server := service.NewSocketServer(socketPath, nil)
	for _, action := range []string{"start", "stop", "status"} {
		server.Handle(action, func(ctx context.Context, raw []byte) (any, error) {
			var request struct {
				Mode string `cbor:"mode"`
			}
			if err := codec.Unmarshal(raw, &request); err != nil {
				return nil, err
			}
			if modes != nil {
				modes <- request.Mode
			}
			return status, nil
		})
	}
	server.Handle("fail", func(context.Context, []byte) (any, error) {
		return nil, errors.New("session is stopping")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, done, 5*time.Second, "socket server exit")
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "control socket ready")
	return service.NewClient(socketPath)
}

func TestCallAndPrintText(t *testing.T) {
	status := arc.Status{
		SessionID:  "01J0000000000000000000000",
		State:      "RUNNING_MINI_INSTANCE",
		TargetMode: "mini",
		InstanceID: "instance-1",
		WasRunning: true,
		StartedAt:  started,
		RunningAt:  started.Add(1500 * time.Millisecond),
	}
	modes := make(chan string, 1)
	client := serveStatus(t, status, modes)

	var buffer bytes.Buffer
	if err := callAndPrint(client, "start", map[string]any{"mode": "mini"}, &cli.JSONOutput{}, &buffer); err != nil {
		t.Fatalf("callAndPrint: %v", err)
	}
	output := buffer.String()
	for _, want := range []string{
		"session:", "01J0000000000000000000000",
		"state:", "RUNNING_MINI_INSTANCE",
		"instance:", "instance-1",
		"boot time:", "1.5s",
		"2026-03-01T09:00:00Z",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "stop reason") {
		t.Errorf("running status shows a stop reason:\n%s", output)
	}
	if mode := testutil.RequireReceive(t, modes, 5*time.Second, "start request"); mode != "mini" {
		t.Errorf("requested mode = %q, want mini", mode)
	}
}

func TestCallAndPrintJSON(t *testing.T) {
	status := arc.Status{
		SessionID:  "s",
		State:      "STOPPED",
		StopReason: "CRASH",
		WasRunning: true,
		StoppedAt:  started,
	}
	client := serveStatus(t, status, nil)

	var buffer bytes.Buffer
	if err := callAndPrint(client, "status", nil, &cli.JSONOutput{OutputJSON: true}, &buffer); err != nil {
		t.Fatalf("callAndPrint: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buffer.String())
	}
	if decoded["state"] != "STOPPED" || decoded["stop_reason"] != "CRASH" || decoded["was_running"] != true {
		t.Errorf("decoded = %v", decoded)
	}
	if _, ok := decoded["started_at"]; ok {
		t.Errorf("zero started_at serialized: %v", decoded)
	}
}

func TestCallAndPrintServiceError(t *testing.T) {
	client := serveStatus(t, arc.Status{}, nil)

	err := callAndPrint(client, "fail", nil, &cli.JSONOutput{}, &bytes.Buffer{})
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("err = %v, want *service.ServiceError", err)
	}
	if !strings.Contains(serviceErr.Message, "stopping") {
		t.Errorf("message = %q", serviceErr.Message)
	}
}

func TestDefaultSocketPath(t *testing.T) {
	t.Setenv("ARC_CONFIG", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	path, err := defaultSocketPath()
	if err != nil {
		t.Fatalf("defaultSocketPath: %v", err)
	}
	if path != "/run/user/1000/arc/control.sock" {
		t.Errorf("path = %q, want /run/user/1000/arc/control.sock", path)
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	err := Command().Execute([]string{"start", "--mode", "medium", "--socket", "/nonexistent"})
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Errorf("err = %v, want unknown mode", err)
	}
}
