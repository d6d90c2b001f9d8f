// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package credential validates HTTP Basic Authentication credentials
// against a password hash computed once at startup.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters.
const (
	SaltSize = 32
	HashSize = 64

	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

var ErrEmptyPassword = errors.New("password is empty")

// Validator checks Authorization header values.
// The cleartext password is not retained, only its scrypt hash and salt.
// It is immutable and safe for concurrent use.
type Validator struct {
	username []byte
	salt     []byte
	hash     []byte
}

// New returns a validator for the given credentials.
// An empty password is rejected, callers disable authentication instead.
func New(username, password string) (*Validator, error) {
	return newValidator(rand.Reader, username, password)
}

func newValidator(r io.Reader, username, password string) (*Validator, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	hash, err := hashPassword([]byte(password), salt)
	if err != nil {
		return nil, err
	}

	return &Validator{
		username: []byte(username),
		salt:     salt,
		hash:     hash,
	}, nil
}

func hashPassword(password, salt []byte) ([]byte, error) {
	return scrypt.Key(password, salt, scryptN, scryptR, scryptP, HashSize)
}

// Validate reports whether the Authorization header value carries the expected credentials.
//
// The password hash is computed even if the username does not match,
// so the response time does not reveal which of the two was wrong.
func (v *Validator) Validate(authorization string) bool {
	user, pass, ok := ParseBasicAuth(authorization)
	if !ok {
		return false
	}

	userMatch := subtle.ConstantTimeCompare([]byte(user), v.username) == 1

	hash, err := hashPassword([]byte(pass), v.salt)
	if err != nil {
		return false
	}
	passMatch := subtle.ConstantTimeCompare(hash, v.hash) == 1

	return userMatch && passMatch
}

// ParseBasicAuth parses an HTTP Basic Authentication header value.
// "Basic QWxhZGRpbjpvcGVuIHNlc2FtZQ==" returns ("Aladdin", "open sesame", true).
// The password may contain colons, the value is split on the first one.
func ParseBasicAuth(auth string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	c, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(c), ":")
}
