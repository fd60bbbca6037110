// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ctap

import (
	"fmt"

	"github.com/bureau-foundation/arc/lib/codec"
)

// MakeCredentialResponse is a decoded authenticatorMakeCredential
// response.
type MakeCredentialResponse struct {
	Format               string           `json:"fmt"`
	AuthData             []byte           `json:"authData"`
	AttestationStatement codec.RawMessage `json:"-"`

	// AttestationObject is {"fmt", "authData", "attStmt"} re-encoded
	// with deterministic encoding, the form relying parties expect.
	AttestationObject []byte `json:"attestationObject"`
}

var makeCredentialFields = []field[uint64]{
	{1, "fmt", codec.MajorText, true},
	{2, "authData", codec.MajorBytes, true},
	{3, "attStmt", codec.MajorMap, true},
}

// DecodeMakeCredentialResponse decodes the body of an
// authenticatorMakeCredential response.
func DecodeMakeCredentialResponse(status Status, body []byte) (MakeCredentialResponse, error) {
	if err := checkStatus(status); err != nil {
		return MakeCredentialResponse{}, err
	}

	const what = "makeCredential response"
	entries, err := decodeMap(body, what, makeCredentialFields)
	if err != nil {
		return MakeCredentialResponse{}, err
	}

	var response MakeCredentialResponse
	if err := decodeValue(entries[1], what, "fmt", &response.Format); err != nil {
		return MakeCredentialResponse{}, err
	}
	if err := decodeValue(entries[2], what, "authData", &response.AuthData); err != nil {
		return MakeCredentialResponse{}, err
	}
	response.AttestationStatement = entries[3]

	response.AttestationObject, err = codec.Marshal(map[string]codec.RawMessage{
		"fmt":      entries[1],
		"authData": entries[2],
		"attStmt":  entries[3],
	})
	if err != nil {
		return MakeCredentialResponse{}, fmt.Errorf("encoding attestation object: %w", err)
	}
	return response, nil
}

// AttestationObject is a parsed WebAuthn attestation object.
type AttestationObject struct {
	Format               string
	AuthData             []byte
	AttestationStatement codec.RawMessage
}

var attestationObjectFields = []field[string]{
	{"fmt", "fmt", codec.MajorText, true},
	{"authData", "authData", codec.MajorBytes, true},
	{"attStmt", "attStmt", codec.MajorMap, true},
}

// ParseAttestationObject decodes an attestation object, such as
// MakeCredentialResponse.AttestationObject.
func ParseAttestationObject(data []byte) (AttestationObject, error) {
	const what = "attestation object"
	entries, err := decodeMap(data, what, attestationObjectFields)
	if err != nil {
		return AttestationObject{}, err
	}

	var object AttestationObject
	if err := decodeValue(entries["fmt"], what, "fmt", &object.Format); err != nil {
		return AttestationObject{}, err
	}
	if err := decodeValue(entries["authData"], what, "authData", &object.AuthData); err != nil {
		return AttestationObject{}, err
	}
	object.AttestationStatement = entries["attStmt"]
	return object, nil
}

// GetAssertionResponse is a decoded authenticatorGetAssertion response.
type GetAssertionResponse struct {
	Credential     *CredentialDescriptor `json:"credential,omitempty"`
	AuthData       []byte                `json:"authData"`
	Signature      []byte                `json:"signature"`
	User           UserEntity            `json:"user"`
	NumCredentials *uint64               `json:"numberOfCredentials,omitempty"`
}

var getAssertionFields = []field[uint64]{
	{1, "credential", codec.MajorMap, false},
	{2, "authData", codec.MajorBytes, true},
	{3, "signature", codec.MajorBytes, true},
	{4, "user", codec.MajorMap, true},
	{5, "numberOfCredentials", codec.MajorUnsigned, false},
}

// DecodeGetAssertionResponse decodes the body of an
// authenticatorGetAssertion response.
func DecodeGetAssertionResponse(status Status, body []byte) (GetAssertionResponse, error) {
	if err := checkStatus(status); err != nil {
		return GetAssertionResponse{}, err
	}

	const what = "getAssertion response"
	entries, err := decodeMap(body, what, getAssertionFields)
	if err != nil {
		return GetAssertionResponse{}, err
	}

	var response GetAssertionResponse
	if err := decodeValue(entries[2], what, "authData", &response.AuthData); err != nil {
		return GetAssertionResponse{}, err
	}
	if err := decodeValue(entries[3], what, "signature", &response.Signature); err != nil {
		return GetAssertionResponse{}, err
	}
	if response.User, err = decodeUserEntity(entries[4]); err != nil {
		return GetAssertionResponse{}, err
	}

	if raw, ok := entries[1]; ok {
		credential, err := decodeCredentialDescriptor(raw)
		if err != nil {
			return GetAssertionResponse{}, err
		}
		response.Credential = &credential
	}
	if raw, ok := entries[5]; ok {
		var count uint64
		if err := decodeValue(raw, what, "numberOfCredentials", &count); err != nil {
			return GetAssertionResponse{}, err
		}
		response.NumCredentials = &count
	}
	return response, nil
}

// GetInfoResponse is a decoded authenticatorGetInfo response.
type GetInfoResponse struct {
	Versions     []string `json:"versions"`
	Extensions   []string `json:"extensions,omitempty"`
	AAGUID       []byte   `json:"aaguid"`
	Options      *Options `json:"options,omitempty"`
	MaxMsgSize   *uint64  `json:"maxMsgSize,omitempty"`
	PinProtocols []uint64 `json:"pinProtocols,omitempty"`
}

var getInfoFields = []field[uint64]{
	{1, "versions", codec.MajorArray, true},
	{2, "extensions", codec.MajorArray, false},
	{3, "aaguid", codec.MajorBytes, true},
	{4, "options", codec.MajorMap, false},
	{5, "maxMsgSize", codec.MajorUnsigned, false},
	{6, "pinProtocols", codec.MajorArray, false},
}

// DecodeGetInfoResponse decodes the body of an authenticatorGetInfo
// response.
func DecodeGetInfoResponse(status Status, body []byte) (GetInfoResponse, error) {
	if err := checkStatus(status); err != nil {
		return GetInfoResponse{}, err
	}

	const what = "getInfo response"
	entries, err := decodeMap(body, what, getInfoFields)
	if err != nil {
		return GetInfoResponse{}, err
	}

	var response GetInfoResponse
	targets := map[uint64]any{
		1: &response.Versions,
		2: &response.Extensions,
		3: &response.AAGUID,
		6: &response.PinProtocols,
	}
	if err := decodePresent(entries, what, getInfoFields, targets); err != nil {
		return GetInfoResponse{}, err
	}

	if raw, ok := entries[4]; ok {
		options, err := decodeOptions(raw)
		if err != nil {
			return GetInfoResponse{}, err
		}
		response.Options = &options
	}
	if raw, ok := entries[5]; ok {
		var size uint64
		if err := decodeValue(raw, what, "maxMsgSize", &size); err != nil {
			return GetInfoResponse{}, err
		}
		response.MaxMsgSize = &size
	}
	return response, nil
}
