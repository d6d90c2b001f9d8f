// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package e2e

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

var ErrUnencryptedResponse = errors.New("response is not encrypted")

// Transport is a client side http.RoundTripper that sends request bodies as frames
// and opens encrypted responses.
type Transport struct {
	// Password is the shared secret, it must match the proxy E2E password.
	Password string

	// RequireEncryptedResponse makes RoundTrip fail with ErrUnencryptedResponse
	// if the response is not marked as encrypted.
	// Error responses produced by the proxy itself are never encrypted.
	RequireEncryptedResponse bool

	// Base is the underlying transport, if nil http.DefaultTransport is used.
	Base http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := NewCodec(t.Password)

	var plaintext []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		plaintext = b
	}

	frame, err := c.Seal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt request body: %w", err)
	}

	outreq := req.Clone(req.Context())
	MarkEncrypted(outreq.Header, req.Header.Get("Content-Type"))
	outreq.Body = io.NopCloser(bytes.NewReader(frame))
	outreq.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(frame)), nil
	}
	outreq.ContentLength = int64(len(frame))
	outreq.Header.Set("Content-Length", strconv.Itoa(len(frame)))

	res, err := t.base().RoundTrip(outreq)
	if err != nil {
		return nil, err
	}

	if !IsEncrypted(res.Header) {
		if t.RequireEncryptedResponse {
			res.Body.Close()
			return nil, ErrUnencryptedResponse
		}
		return res, nil
	}

	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	plaintext, err = c.Open(body)
	if err != nil {
		return nil, fmt.Errorf("decrypt response body: %w", err)
	}

	res.Header.Set("Content-Type", OriginalContentType(res.Header))
	res.Header.Set("Content-Length", strconv.Itoa(len(plaintext)))
	res.Header.Del(HeaderEncrypted)
	res.Header.Del(HeaderOriginalContentType)
	res.ContentLength = int64(len(plaintext))
	res.Body = io.NopCloser(bytes.NewReader(plaintext))

	return res, nil
}
