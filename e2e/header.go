// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package e2e

import (
	"net/http"
)

const (
	// HeaderEncrypted marks a request or response body as a frame.
	HeaderEncrypted = "X-E2E-Encrypted"

	// HeaderOriginalContentType carries the content type of the plaintext.
	HeaderOriginalContentType = "X-Original-Content-Type"

	// ContentType is the wire content type of a frame.
	ContentType = "application/octet-stream"

	// DefaultOriginalContentType is assumed when HeaderOriginalContentType is missing.
	DefaultOriginalContentType = "application/json"
)

// IsEncrypted reports whether h marks the body as a frame.
// Only the exact value "true" counts.
func IsEncrypted(h http.Header) bool {
	return h.Get(HeaderEncrypted) == "true"
}

// OriginalContentType returns the plaintext content type declared in h.
func OriginalContentType(h http.Header) string {
	if v := h.Get(HeaderOriginalContentType); v != "" {
		return v
	}
	return DefaultOriginalContentType
}

// MarkEncrypted sets the frame headers on h.
func MarkEncrypted(h http.Header, originalContentType string) {
	if originalContentType == "" {
		originalContentType = DefaultOriginalContentType
	}
	h.Set("Content-Type", ContentType)
	h.Set(HeaderEncrypted, "true")
	h.Set(HeaderOriginalContentType, originalContentType)
}
