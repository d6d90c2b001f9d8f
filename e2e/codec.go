// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package e2e

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize selects AES-256.
	KeySize = 32

	// Iterations is the PBKDF2-HMAC-SHA256 iteration count.
	// All clients must use the same value, it is not negotiated.
	Iterations = 600_000
)

// ErrDecrypt is returned for every frame that cannot be opened.
// Malformed frames, unknown versions, wrong passwords and tampered data are not told apart.
var ErrDecrypt = errors.New("message authentication failed")

// DeriveKey derives an AES-256 key from password and salt with PBKDF2-HMAC-SHA256.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, Iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext into a new frame using a fresh random salt and nonce.
func Encrypt(plaintext, password []byte) ([]byte, error) {
	return encrypt(rand.Reader, plaintext, password)
}

func encrypt(r io.Reader, plaintext, password []byte) ([]byte, error) {
	f := Frame{Version: Version}
	if _, err := io.ReadFull(r, f.Salt[:]); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(r, f.Nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := newGCM(DeriveKey(password, f.Salt[:]))
	if err != nil {
		return nil, err
	}

	// Seal appends the tag to the ciphertext, the frame stores it in front.
	sealed := aead.Seal(nil, f.Nonce[:], plaintext, nil)
	n := len(sealed) - TagSize
	f.Ciphertext = sealed[:n]
	copy(f.Tag[:], sealed[n:])

	return f.MarshalBinary()
}

// Decrypt opens a frame produced by Encrypt.
// Any failure is reported as ErrDecrypt.
func Decrypt(frame, password []byte) ([]byte, error) {
	f, err := ParseFrame(frame)
	if err != nil {
		return nil, ErrDecrypt
	}

	aead, err := newGCM(DeriveKey(password, f.Salt[:]))
	if err != nil {
		return nil, ErrDecrypt
	}

	sealed := make([]byte, 0, len(f.Ciphertext)+TagSize)
	sealed = append(sealed, f.Ciphertext...)
	sealed = append(sealed, f.Tag[:]...)

	plaintext, err := aead.Open(nil, f.Nonce[:], sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

// Codec binds a shared password to Encrypt and Decrypt.
// It is safe for concurrent use.
type Codec struct {
	password []byte
}

func NewCodec(password string) *Codec {
	return &Codec{password: []byte(password)}
}

func (c *Codec) Seal(plaintext []byte) ([]byte, error) {
	return Encrypt(plaintext, c.password)
}

func (c *Codec) Open(frame []byte) ([]byte, error) {
	return Decrypt(frame, c.password)
}
