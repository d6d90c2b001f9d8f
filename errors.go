// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"syscall"
)

var (
	ErrUnauthorized = errors.New("Unauthorized")
	ErrE2ERequired  = errors.New("E2E encryption required but request was not encrypted")

	// ErrDecryption is returned for every request body that fails to decrypt.
	// Malformed frames and authentication failures are not distinguished.
	ErrDecryption = errors.New("E2E decryption failed")
)

// UpstreamErrorKind classifies upstream failures, it is used as a metric label.
type UpstreamErrorKind string

const (
	UpstreamTimeout    UpstreamErrorKind = "timeout"
	UpstreamConnection UpstreamErrorKind = "connection"
	UpstreamProtocol   UpstreamErrorKind = "protocol"
	UpstreamCanceled   UpstreamErrorKind = "canceled"
)

// UpstreamError is a failed upstream call.
type UpstreamError struct {
	Kind UpstreamErrorKind
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Kind == UpstreamTimeout {
		return "upstream timeout"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Timeout() bool {
	return e.Kind == UpstreamTimeout
}

type upstreamErrorHandler func(error) UpstreamErrorKind

// newUpstreamError classifies err, it strips the url.Error wrapper
// so that details do not repeat the method and upstream URL.
func newUpstreamError(err error) *UpstreamError {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	handlers := []upstreamErrorHandler{
		handleCanceled,
		handleTimeout,
		handleDialError,
		handleDNSError,
	}

	kind := UpstreamProtocol
	for _, h := range handlers {
		if k := h(err); k != "" {
			kind = k
			break
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	return &UpstreamError{Kind: kind, Err: err}
}

func handleCanceled(err error) UpstreamErrorKind {
	if errors.Is(err, context.Canceled) {
		return UpstreamCanceled
	}
	return ""
}

func handleTimeout(err error) UpstreamErrorKind {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return UpstreamTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return UpstreamTimeout
	}
	return ""
}

func handleDialError(err error) UpstreamErrorKind {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return UpstreamConnection
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || isConnReset(err) {
		return UpstreamConnection
	}
	return ""
}

func handleDNSError(err error) UpstreamErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return UpstreamConnection
	}
	return ""
}

func isConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE)
}

// errorBody is the JSON body of all error responses.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError writes a JSON error response.
// The CORS headers are already set on w by the CORS middleware.
func writeError(w http.ResponseWriter, status int, msg, details string) {
	b, err := json.Marshal(errorBody{Error: msg, Details: details})
	if err != nil {
		panic(err)
	}

	h := w.Header()
	h.Del("Content-Encoding")
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	w.Write(b) //nolint:errcheck // client may be gone
}

// unauthorizedHandler renders the basic auth rejection.
var unauthorizedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusUnauthorized, ErrUnauthorized.Error(), "")
})
