// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"net/http"
	"time"
)

// HTTPTransportConfig configures the plain HTTP transport to the upstream.
type HTTPTransportConfig struct {
	DialConfig

	// MaxIdleConnsPerHost, if non-zero, controls the maximum idle
	// (keep-alive) connections to keep per-host. If zero,
	// DefaultMaxIdleConnsPerHost is used.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle
	// (keep-alive) connection will remain idle before closing
	// itself. It should be lower than DialConfig.IdleTimeout.
	IdleConnTimeout time.Duration
}

func DefaultHTTPTransportConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		DialConfig:          *DefaultDialConfig(),
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPTransport returns a transport that talks plain HTTP/1.1 to the upstream.
// Compression is disabled so that streamed responses are relayed byte for byte.
func NewHTTPTransport(cfg *HTTPTransportConfig) *http.Transport {
	return &http.Transport{
		Proxy:               nil,
		DialContext:         NewDialer(&cfg.DialConfig).DialContext,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableCompression:  true,
		ForceAttemptHTTP2:   false,
	}
}
