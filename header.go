// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// upstreamAllowedHeaders are the only request headers forwarded upstream.
// Cookies, Origin, Referer, Sec-Fetch-* and Authorization are never sent,
// some upstreams reject browser originated requests based on them.
var upstreamAllowedHeaders = []string{
	"Content-Type",
	"Accept",
	"User-Agent",
}

// FilterUpstreamHeaders returns the header set sent upstream.
// Content-Length is set to bodyLength if it is not negative, otherwise the incoming value is kept.
// Host is always set to upstreamHost.
func FilterUpstreamHeaders(in http.Header, upstreamHost string, bodyLength int64) http.Header {
	out := make(http.Header, len(upstreamAllowedHeaders)+2)
	for _, k := range upstreamAllowedHeaders {
		if v := in.Get(k); v != "" {
			out.Set(k, v)
		}
	}

	if bodyLength >= 0 {
		out.Set("Content-Length", strconv.FormatInt(bodyLength, 10))
	} else if v := in.Get("Content-Length"); v != "" {
		out.Set("Content-Length", v)
	}

	out.Set("Host", upstreamHost)

	return out
}

// applyUpstreamHeaders moves the filtered header set to the outgoing request.
// The Go client takes Host and Content-Length from the request fields, not the header map,
// and adds its own User-Agent unless the key is present.
// Without Content-Length the body is sent chunked.
func applyUpstreamHeaders(req *http.Request, h http.Header) {
	req.Host = h.Get("Host")
	h.Del("Host")

	if v := h.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			req.ContentLength = n
			if n == 0 {
				req.Body = http.NoBody
				req.GetBody = nil
			}
		}
	}

	if _, ok := h["User-Agent"]; !ok {
		h["User-Agent"] = []string{""}
	}

	req.Header = h
}

// Hop-by-hop headers, see RFC 9110 section 7.6.1.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopByHopHeaders removes the hop-by-hop headers and the headers listed in Connection.
func removeHopByHopHeaders(h http.Header) {
	for _, f := range h["Connection"] {
		for _, sf := range strings.Split(f, ",") {
			if sf = textproto.TrimString(sf); sf != "" && httpguts.ValidHeaderFieldName(sf) {
				h.Del(sf)
			}
		}
	}
	for _, k := range hopHeaders {
		h.Del(k)
	}
}

// copyResponseHeader copies the upstream response headers without hop-by-hop headers.
func copyResponseHeader(dst, src http.Header) {
	h := src.Clone()
	removeHopByHopHeaders(h)
	for k, vv := range h {
		dst[k] = vv
	}
}
