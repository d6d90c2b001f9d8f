// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package e2e

import (
	"errors"
)

// Frame layout, all sizes in bytes.
const (
	Version byte = 0x01

	SaltSize  = 32
	NonceSize = 12
	TagSize   = 16

	// HeaderSize is the size of the fixed part of a frame, it is also the minimum frame size.
	HeaderSize = 1 + SaltSize + NonceSize + TagSize
)

const (
	saltOffset  = 1
	nonceOffset = saltOffset + SaltSize
	tagOffset   = nonceOffset + NonceSize
	dataOffset  = tagOffset + TagSize
)

var ErrMalformedFrame = errors.New("malformed frame")

// Frame is a single encrypted message:
//
//	[version:1][salt:32][nonce:12][tag:16][ciphertext:N]
//
// Every frame carries its own salt and nonce, frames can be decoded independently.
type Frame struct {
	Version    byte
	Salt       [SaltSize]byte
	Nonce      [NonceSize]byte
	Tag        [TagSize]byte
	Ciphertext []byte
}

// ParseFrame slices b into frame fields.
// The returned frame references b, b must not be modified while the frame is in use.
func ParseFrame(b []byte) (*Frame, error) {
	if len(b) < HeaderSize {
		return nil, ErrMalformedFrame
	}
	if b[0] != Version {
		return nil, ErrMalformedFrame
	}

	f := &Frame{
		Version:    b[0],
		Ciphertext: b[dataOffset:],
	}
	copy(f.Salt[:], b[saltOffset:nonceOffset])
	copy(f.Nonce[:], b[nonceOffset:tagOffset])
	copy(f.Tag[:], b[tagOffset:dataOffset])

	return f, nil
}

// Len returns the encoded size of the frame.
func (f *Frame) Len() int {
	return HeaderSize + len(f.Ciphertext)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *Frame) MarshalBinary() ([]byte, error) {
	if f.Version != Version {
		return nil, ErrMalformedFrame
	}

	b := make([]byte, f.Len())
	b[0] = f.Version
	copy(b[saltOffset:], f.Salt[:])
	copy(b[nonceOffset:], f.Nonce[:])
	copy(b[tagOffset:], f.Tag[:])
	copy(b[dataOffset:], f.Ciphertext)

	return b, nil
}
