// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ctap

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped by every structural decode failure.
var ErrMalformedResponse = errors.New("ctap: malformed response")

// Status is the leading status byte of an authenticator response.
type Status byte

// Status codes from CTAP2 §6.3 that authenticators commonly return.
const (
	StatusSuccess            Status = 0x00
	StatusInvalidCommand     Status = 0x01
	StatusInvalidParameter   Status = 0x02
	StatusInvalidLength      Status = 0x03
	StatusTimeout            Status = 0x05
	StatusChannelBusy        Status = 0x06
	StatusCBORUnexpectedType Status = 0x11
	StatusInvalidCBOR        Status = 0x12
	StatusMissingParameter   Status = 0x14
	StatusUnsupportedExt     Status = 0x16
	StatusCredentialExcluded Status = 0x19
	StatusUnsupportedAlg     Status = 0x26
	StatusOperationDenied    Status = 0x27
	StatusKeyStoreFull       Status = 0x28
	StatusUnsupportedOption  Status = 0x2B
	StatusKeepaliveCancel    Status = 0x2D
	StatusNoCredentials      Status = 0x2E
	StatusUserActionTimeout  Status = 0x2F
	StatusNotAllowed         Status = 0x30
	StatusPINInvalid         Status = 0x31
	StatusPINBlocked         Status = 0x32
	StatusPINAuthInvalid     Status = 0x33
	StatusPINNotSet          Status = 0x35
	StatusPINRequired        Status = 0x36
	StatusActionTimeout      Status = 0x3A
	StatusUserPresenceNeeded Status = 0x3B
	StatusOther              Status = 0x7F
)

var statusNames = map[Status]string{
	StatusSuccess:            "CTAP2_OK",
	StatusInvalidCommand:     "CTAP1_ERR_INVALID_COMMAND",
	StatusInvalidParameter:   "CTAP1_ERR_INVALID_PARAMETER",
	StatusInvalidLength:      "CTAP1_ERR_INVALID_LENGTH",
	StatusTimeout:            "CTAP1_ERR_TIMEOUT",
	StatusChannelBusy:        "CTAP1_ERR_CHANNEL_BUSY",
	StatusCBORUnexpectedType: "CTAP2_ERR_CBOR_UNEXPECTED_TYPE",
	StatusInvalidCBOR:        "CTAP2_ERR_INVALID_CBOR",
	StatusMissingParameter:   "CTAP2_ERR_MISSING_PARAMETER",
	StatusUnsupportedExt:     "CTAP2_ERR_UNSUPPORTED_EXTENSION",
	StatusCredentialExcluded: "CTAP2_ERR_CREDENTIAL_EXCLUDED",
	StatusUnsupportedAlg:     "CTAP2_ERR_UNSUPPORTED_ALGORITHM",
	StatusOperationDenied:    "CTAP2_ERR_OPERATION_DENIED",
	StatusKeyStoreFull:       "CTAP2_ERR_KEY_STORE_FULL",
	StatusUnsupportedOption:  "CTAP2_ERR_UNSUPPORTED_OPTION",
	StatusKeepaliveCancel:    "CTAP2_ERR_KEEPALIVE_CANCEL",
	StatusNoCredentials:      "CTAP2_ERR_NO_CREDENTIALS",
	StatusUserActionTimeout:  "CTAP2_ERR_USER_ACTION_TIMEOUT",
	StatusNotAllowed:         "CTAP2_ERR_NOT_ALLOWED",
	StatusPINInvalid:         "CTAP2_ERR_PIN_INVALID",
	StatusPINBlocked:         "CTAP2_ERR_PIN_BLOCKED",
	StatusPINAuthInvalid:     "CTAP2_ERR_PIN_AUTH_INVALID",
	StatusPINNotSet:          "CTAP2_ERR_PIN_NOT_SET",
	StatusPINRequired:        "CTAP2_ERR_PIN_REQUIRED",
	StatusActionTimeout:      "CTAP2_ERR_ACTION_TIMEOUT",
	StatusUserPresenceNeeded: "CTAP2_ERR_UP_REQUIRED",
	StatusOther:              "CTAP1_ERR_OTHER",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CTAP_STATUS_0x%02x", byte(s))
}

// StatusError reports a response whose status byte is not success.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ctap: authenticator returned %s (0x%02x)", e.Status, byte(e.Status))
}

// SplitResponse separates the status byte from the CBOR body of a raw
// authenticator response. The body may be empty.
func SplitResponse(raw []byte) (Status, []byte, error) {
	if len(raw) == 0 {
		return 0, nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	return Status(raw[0]), raw[1:], nil
}

func checkStatus(status Status) error {
	if status != StatusSuccess {
		return &StatusError{Status: status}
	}
	return nil
}
