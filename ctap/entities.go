// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ctap

import (
	"github.com/bureau-foundation/arc/lib/codec"
)

// UserEntity is a PublicKeyCredentialUserEntity.
type UserEntity struct {
	ID          []byte `json:"id"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

var userEntityFields = []field[string]{
	{"id", "id", codec.MajorBytes, true},
	{"name", "name", codec.MajorText, false},
	{"displayName", "displayName", codec.MajorText, false},
	{"icon", "icon", codec.MajorText, false},
}

func decodeUserEntity(raw codec.RawMessage) (UserEntity, error) {
	const what = "user entity"
	entries, err := decodeMap(raw, what, userEntityFields)
	if err != nil {
		return UserEntity{}, err
	}

	var user UserEntity
	targets := map[string]any{
		"id":          &user.ID,
		"name":        &user.Name,
		"displayName": &user.DisplayName,
		"icon":        &user.Icon,
	}
	if err := decodePresent(entries, what, userEntityFields, targets); err != nil {
		return UserEntity{}, err
	}
	return user, nil
}

// CredentialDescriptor is a PublicKeyCredentialDescriptor.
type CredentialDescriptor struct {
	Type       string   `json:"type"`
	ID         []byte   `json:"id"`
	Transports []string `json:"transports,omitempty"`
}

var credentialDescriptorFields = []field[string]{
	{"type", "type", codec.MajorText, true},
	{"id", "id", codec.MajorBytes, true},
	{"transports", "transports", codec.MajorArray, false},
}

func decodeCredentialDescriptor(raw codec.RawMessage) (CredentialDescriptor, error) {
	const what = "credential descriptor"
	entries, err := decodeMap(raw, what, credentialDescriptorFields)
	if err != nil {
		return CredentialDescriptor{}, err
	}

	var credential CredentialDescriptor
	targets := map[string]any{
		"type":       &credential.Type,
		"id":         &credential.ID,
		"transports": &credential.Transports,
	}
	if err := decodePresent(entries, what, credentialDescriptorFields, targets); err != nil {
		return CredentialDescriptor{}, err
	}
	return credential, nil
}

// Availability is the tri-state of an authenticatorGetInfo option that
// can be supported without being configured.
type Availability int

const (
	// NotSupported: the option key is absent.
	NotSupported Availability = iota
	// SupportedNotConfigured: the option is false.
	SupportedNotConfigured
	// Configured: the option is true.
	Configured
)

func (a Availability) String() string {
	switch a {
	case SupportedNotConfigured:
		return "supported-not-configured"
	case Configured:
		return "configured"
	default:
		return "not-supported"
	}
}

// MarshalText renders the availability by name in JSON output.
func (a Availability) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Options is the authenticatorGetInfo options map.
type Options struct {
	Platform         bool         `json:"plat"`
	ResidentKey      bool         `json:"rk"`
	UserPresence     bool         `json:"up"`
	UserVerification Availability `json:"uv"`
	ClientPIN        Availability `json:"clientPin"`
}

var optionFields = []field[string]{
	{"plat", "plat", codec.MajorSimple, false},
	{"rk", "rk", codec.MajorSimple, false},
	{"up", "up", codec.MajorSimple, false},
	{"uv", "uv", codec.MajorSimple, false},
	{"clientPin", "clientPin", codec.MajorSimple, false},
}

func decodeOptions(raw codec.RawMessage) (Options, error) {
	const what = "options"
	entries, err := decodeMap(raw, what, optionFields)
	if err != nil {
		return Options{}, err
	}

	// Booleans are already checked to be exactly true or false.
	flag := func(key string, fallback bool) bool {
		raw, ok := entries[key]
		if !ok {
			return fallback
		}
		return raw[0] == 0xf5
	}
	availability := func(key string) Availability {
		if _, ok := entries[key]; !ok {
			return NotSupported
		}
		if flag(key, false) {
			return Configured
		}
		return SupportedNotConfigured
	}

	return Options{
		Platform:         flag("plat", false),
		ResidentKey:      flag("rk", false),
		UserPresence:     flag("up", true),
		UserVerification: availability("uv"),
		ClientPIN:        availability("clientPin"),
	}, nil
}

// decodePresent decodes each present field into its target.
func decodePresent[K comparable](entries map[K]codec.RawMessage, what string, fields []field[K], targets map[K]any) error {
	for _, f := range fields {
		raw, present := entries[f.key]
		if !present {
			continue
		}
		target, ok := targets[f.key]
		if !ok {
			continue
		}
		if err := decodeValue(raw, what, f.name, target); err != nil {
			return err
		}
	}
	return nil
}
