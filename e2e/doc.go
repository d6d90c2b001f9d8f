// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package e2e implements the end-to-end body encryption format.
//
// A frame is AES-256-GCM ciphertext keyed with PBKDF2-HMAC-SHA256 over a shared password
// and a per message random salt.
// The format is stateless, any party holding the password can open any frame.
package e2e
