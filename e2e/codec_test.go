// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package e2e

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	plaintext := []byte(`{"model":"x"}`)

	frame, err := Encrypt(plaintext, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != HeaderSize+len(plaintext) {
		t.Fatalf("expected frame length %d, got %d", HeaderSize+len(plaintext), len(frame))
	}
	if frame[0] != Version {
		t.Fatalf("expected version %#x, got %#x", Version, frame[0])
	}

	got, err := Decrypt(frame, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("expected %q, got %q", plaintext, got)
	}

	if _, err := Decrypt(frame, []byte("wrong")); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	frame, err := Encrypt(nil, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if len(frame) != HeaderSize {
		t.Fatalf("expected frame length %d, got %d", HeaderSize, len(frame))
	}

	got, err := Decrypt(frame, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty plaintext, got %q", got)
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	plaintext := []byte("hello")
	a, err := Encrypt(plaintext, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt(plaintext, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("expected different frames for the same plaintext")
	}
	if bytes.Equal(a[saltOffset:nonceOffset], b[saltOffset:nonceOffset]) {
		t.Fatal("expected different salts")
	}
	if bytes.Equal(a[nonceOffset:tagOffset], b[nonceOffset:tagOffset]) {
		t.Fatal("expected different nonces")
	}
}

func TestEncryptFrameLayout(t *testing.T) {
	random := make([]byte, SaltSize+NonceSize)
	for i := range random {
		random[i] = byte(i + 1)
	}

	frame, err := encrypt(bytes.NewReader(random), []byte("ping"), []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ParseFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.Salt[:], random[:SaltSize]) {
		t.Errorf("salt mismatch: %x", f.Salt)
	}
	if !bytes.Equal(f.Nonce[:], random[SaltSize:]) {
		t.Errorf("nonce mismatch: %x", f.Nonce)
	}
	if len(f.Ciphertext) != len("ping") {
		t.Errorf("expected ciphertext length %d, got %d", len("ping"), len(f.Ciphertext))
	}
}

func TestEncryptShortRandom(t *testing.T) {
	if _, err := encrypt(bytes.NewReader(make([]byte, 10)), []byte("x"), []byte("secret")); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecryptTampered(t *testing.T) {
	frame, err := Encrypt([]byte(`{"model":"x"}`), []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	// version, salt, nonce, tag, first and last ciphertext byte
	for _, pos := range []int{0, saltOffset, nonceOffset, tagOffset, dataOffset, len(frame) - 1} {
		tampered := bytes.Clone(frame)
		tampered[pos] ^= 0x01

		if _, err := Decrypt(tampered, []byte("secret")); !errors.Is(err, ErrDecrypt) {
			t.Errorf("byte %d: expected ErrDecrypt, got %v", pos, err)
		}
	}
}

func TestDecryptMalformed(t *testing.T) {
	valid, err := Encrypt(nil, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	v2 := bytes.Clone(valid)
	v2[0] = 0x02

	tests := []struct {
		name  string
		frame []byte
	}{
		{"nil", nil},
		{"version only", []byte{Version}},
		{"one byte short", valid[:HeaderSize-1]},
		{"unknown version", v2},
		{"plaintext", []byte(`{"model":"llama3","prompt":"this is not encrypted at all"}`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decrypt(tc.frame, []byte("secret"))
			if err != ErrDecrypt { //nolint:errorlint // the error must not be wrapped
				t.Fatalf("expected ErrDecrypt, got %v", err)
			}
		})
	}
}

func TestCodec(t *testing.T) {
	c := NewCodec("secret")

	frame, err := c.Seal([]byte("ping"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decrypt(frame, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ping" {
		t.Fatalf("expected ping, got %q", got)
	}

	if _, err := NewCodec("other").Open(frame); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDeriveKey(t *testing.T) {
	salt := bytes.Repeat([]byte{0xab}, SaltSize)

	k1 := DeriveKey([]byte("secret"), salt)
	if len(k1) != KeySize {
		t.Fatalf("expected key size %d, got %d", KeySize, len(k1))
	}
	if k2 := DeriveKey([]byte("secret"), salt); !bytes.Equal(k1, k2) {
		t.Fatal("expected key derivation to be deterministic")
	}
	if k3 := DeriveKey([]byte("secret"), bytes.Repeat([]byte{0xcd}, SaltSize)); bytes.Equal(k1, k3) {
		t.Fatal("expected different keys for different salts")
	}
}
