// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sealproxy provides a TLS terminating reverse proxy for an Ollama server.
// The proxy can be protected with HTTP basic authentication.
// Request and response bodies can be end-to-end encrypted with a shared password, see package e2e.
// Responses are streamed to the client as they arrive unless the request is encrypted.
package sealproxy
