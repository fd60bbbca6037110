// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionmanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/bureau-foundation/arc/arc"
)

// D-Bus error names that change how a failed start is reported.
const (
	ErrorLowFreeDisk    = Interface + ".LowFreeDisk"
	errorServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"
	errorNameHasNoOwner = "org.freedesktop.DBus.Error.NameHasNoOwner"
	errorNoReply        = "org.freedesktop.DBus.Error.NoReply"
	errorDisconnected   = "org.freedesktop.DBus.Error.Disconnected"
)

var errOtherSignal = errors.New("not an ArcInstanceStopped signal")

// Classify maps a D-Bus call error to a start result code.
func Classify(err error) arc.ResultCode {
	if err == nil {
		return arc.ResultSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, dbus.ErrClosed) {
		return arc.ResultUnavailable
	}
	switch ErrorName(err) {
	case ErrorLowFreeDisk:
		return arc.ResultLowFreeDisk
	case errorServiceUnknown, errorNameHasNoOwner, errorNoReply, errorDisconnected:
		return arc.ResultUnavailable
	default:
		return arc.ResultFailure
	}
}

// ErrorName returns the D-Bus error name carried by err, or "".
func ErrorName(err error) string {
	var value dbus.Error
	if errors.As(err, &value) {
		return value.Name
	}
	var pointer *dbus.Error
	if errors.As(err, &pointer) && pointer != nil {
		return pointer.Name
	}
	return ""
}

// ParseInstanceStopped extracts the arguments of an ArcInstanceStopped
// signal.
func ParseInstanceStopped(signal *dbus.Signal) (clean bool, instanceID string, err error) {
	if signal == nil || signal.Path != ObjectPath || signal.Name != Interface+"."+signalInstanceStopped {
		return false, "", errOtherSignal
	}
	if len(signal.Body) != 2 {
		return false, "", fmt.Errorf("ArcInstanceStopped has %d arguments, want 2", len(signal.Body))
	}
	clean, ok := signal.Body[0].(bool)
	if !ok {
		return false, "", fmt.Errorf("ArcInstanceStopped clean argument is %T, want bool", signal.Body[0])
	}
	instanceID, ok = signal.Body[1].(string)
	if !ok {
		return false, "", fmt.Errorf("ArcInstanceStopped instance id argument is %T, want string", signal.Body[1])
	}
	return clean, instanceID, nil
}
