// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/zrb-bund/sealproxy/e2e"
	"github.com/zrb-bund/sealproxy/log"
	"github.com/zrb-bund/sealproxy/middleware"
)

// Mode is the forwarding strategy, it is selected once per request.
type Mode int

const (
	// StreamMode pipes the request and response bodies without buffering.
	StreamMode Mode = iota + 1
	// SealedMode buffers and decrypts the request, and encrypts the buffered response.
	SealedMode
)

func (m Mode) String() string {
	switch m {
	case StreamMode:
		return "stream"
	case SealedMode:
		return "e2e"
	default:
		return "local"
	}
}

const (
	badGatewayMsg       = "Bad gateway"
	sealedBadGatewayMsg = "Bad gateway (E2E)"
)

// engine forwards authenticated requests to the upstream.
type engine struct {
	upstreamURL  string
	upstreamHost string
	transport    http.RoundTripper
	codec        *e2e.Codec
	e2eRequired  bool
	cors         CORSPolicy
	metrics      *proxyMetrics
	log          log.StructuredLogger
}

// selectMode returns ErrE2ERequired for unmarked requests if E2E is enabled and required.
// Marked requests are streamed unchanged if E2E is disabled.
func (e *engine) selectMode(r *http.Request) (Mode, error) {
	marked := e2e.IsEncrypted(r.Header)
	switch {
	case e.codec == nil:
		return StreamMode, nil
	case marked:
		return SealedMode, nil
	case e.e2eRequired:
		return 0, ErrE2ERequired
	default:
		return StreamMode, nil
	}
}

func (e *engine) modeLabel(r *http.Request) string {
	if r.Method == http.MethodOptions {
		return "local"
	}
	m, _ := e.selectMode(r) //nolint:errcheck // rejected requests are local
	return m.String()
}

func (e *engine) requestLog(r *http.Request) log.StructuredLogger {
	return e.log.With(
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.ContextRequestID(r.Context()),
	)
}

func (e *engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mode, err := e.selectMode(r)
	if err != nil {
		e.requestLog(r).InfoContext(r.Context(), "request rejected", "error", err)
		writeError(w, http.StatusForbidden, err.Error(), "")
		return
	}

	switch mode {
	case StreamMode:
		e.stream(w, r)
	case SealedMode:
		e.sealed(w, r)
	}
}

func (e *engine) newUpstreamRequest(r *http.Request, body io.Reader, h http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, e.upstreamURL+r.URL.RequestURI(), body)
	if err != nil {
		return nil, err
	}
	applyUpstreamHeaders(req, h)
	return req, nil
}

func (e *engine) upstreamFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ue := newUpstreamError(err)
	e.metrics.upstreamError(ue.Kind)

	l := e.requestLog(r)
	if ue.Kind == UpstreamCanceled {
		l.DebugContext(r.Context(), "client canceled request", "error", ue.Err)
	} else {
		l.ErrorContext(r.Context(), "upstream request failed", "kind", string(ue.Kind), "error", ue.Err)
	}

	writeError(w, http.StatusBadGateway, msg, ue.Error())
}

// abort is called when the response is already committed.
// It makes net/http close the client connection instead of finishing the response.
func (e *engine) abort(r *http.Request, err error) {
	l := e.requestLog(r)
	if errors.Is(err, errClientWrite) {
		l.DebugContext(r.Context(), "response aborted, client is gone", "error", err)
	} else {
		ue := newUpstreamError(err)
		e.metrics.upstreamError(ue.Kind)
		l.WarnContext(r.Context(), "response aborted", "kind", string(ue.Kind), "error", ue.Err)
	}

	panic(http.ErrAbortHandler)
}

func (e *engine) stream(w http.ResponseWriter, r *http.Request) {
	// Upstreams may answer before the whole request body is read.
	http.NewResponseController(w).EnableFullDuplex() //nolint:errcheck // HTTP/2 is always full duplex

	req, err := e.newUpstreamRequest(r, r.Body, FilterUpstreamHeaders(r.Header, e.upstreamHost, -1))
	if err != nil {
		e.upstreamFailure(w, r, badGatewayMsg, err)
		return
	}

	res, err := e.transport.RoundTrip(req)
	if err != nil {
		e.upstreamFailure(w, r, badGatewayMsg, err)
		return
	}
	defer res.Body.Close()

	h := w.Header()
	copyResponseHeader(h, res.Header)
	h.Set(UpstreamHeader, e.upstreamURL)
	e.cors.Apply(h, r.Header.Get("Origin"))
	w.WriteHeader(res.StatusCode)

	if err := copyFlush(w, res.Body); err != nil {
		e.abort(r, err)
	}
}

var errClientWrite = errors.New("write to client failed")

// copyFlush copies src to w flushing after every write so that streamed tokens are not held back.
// The copy proceeds at the pace of the slower side.
func copyFlush(w http.ResponseWriter, src io.Reader) error {
	rc := http.NewResponseController(w)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return errors.Join(errClientWrite, err)
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return errors.Join(errClientWrite, err)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func (e *engine) sealed(w http.ResponseWriter, r *http.Request) {
	frame, err := io.ReadAll(r.Body)
	if err != nil {
		e.upstreamFailure(w, r, sealedBadGatewayMsg, err)
		return
	}

	plain, err := e.codec.Open(frame)
	if err != nil {
		e.metrics.decryptFailure()
		e.requestLog(r).WarnContext(r.Context(), "request decryption failed", "size", len(frame))
		writeError(w, http.StatusBadRequest, ErrDecryption.Error(), err.Error())
		return
	}

	uh := FilterUpstreamHeaders(r.Header, e.upstreamHost, int64(len(plain)))
	uh.Set("Content-Type", e2e.OriginalContentType(r.Header))

	req, err := e.newUpstreamRequest(r, bytes.NewReader(plain), uh)
	if err != nil {
		e.upstreamFailure(w, r, sealedBadGatewayMsg, err)
		return
	}

	res, err := e.transport.RoundTrip(req)
	if err != nil {
		e.upstreamFailure(w, r, sealedBadGatewayMsg, err)
		return
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		e.upstreamFailure(w, r, sealedBadGatewayMsg, err)
		return
	}

	sealed, err := e.codec.Seal(body)
	if err != nil {
		e.upstreamFailure(w, r, sealedBadGatewayMsg, err)
		return
	}

	ct := res.Header.Get("Content-Type")
	if ct == "" {
		ct = e2e.DefaultOriginalContentType
	}

	h := w.Header()
	e2e.MarkEncrypted(h, ct)
	h.Set(UpstreamHeader, e.upstreamURL)
	h.Set("Content-Length", strconv.Itoa(len(sealed)))
	w.WriteHeader(res.StatusCode)
	if _, err := w.Write(sealed); err != nil {
		e.requestLog(r).DebugContext(r.Context(), "failed to write response", "error", err)
	}

	e.requestLog(r).DebugContext(r.Context(), "E2E request forwarded",
		"plain_in", len(plain), "sealed_out", len(sealed), "status", res.StatusCode)
}
