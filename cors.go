// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"net/http"
	"strings"

	"github.com/zrb-bund/sealproxy/e2e"
)

// UpstreamHeader is added to every proxied response, it carries the upstream URL.
const UpstreamHeader = "X-Ollama-Upstream"

var (
	corsAllowHeaders = strings.Join([]string{
		"authorization",
		"content-type",
		"x-api-key",
		strings.ToLower(e2e.HeaderEncrypted),
		strings.ToLower(e2e.HeaderOriginalContentType),
	}, ",")

	corsAllowMethods = strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}, ",")

	corsExposeHeaders = strings.Join([]string{
		strings.ToLower(e2e.HeaderEncrypted),
		strings.ToLower(e2e.HeaderOriginalContentType),
		strings.ToLower(UpstreamHeader),
	}, ",")
)

// CORSPolicy reflects the request origin, or allows any origin if there is none.
// The allowed and exposed headers and methods are fixed.
//
// Reflecting arbitrary origins together with Access-Control-Allow-Credentials
// lets any web front end use the proxy with the user's credentials.
// Browser clients depend on that, the proxy is protected by basic auth and E2E instead.
type CORSPolicy struct{}

// Headers returns the CORS headers for the origin.
func (CORSPolicy) Headers(origin string) http.Header {
	h := make(http.Header, 6)
	CORSPolicy{}.Apply(h, origin)
	return h
}

// Apply sets the CORS headers for the origin in h, existing values are replaced.
func (CORSPolicy) Apply(h http.Header, origin string) {
	if origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		addVary(h, "Origin")
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
		h.Del("Access-Control-Allow-Credentials")
	}
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
}

func addVary(h http.Header, name string) {
	for _, v := range h.Values("Vary") {
		for _, f := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(f), name) {
				return
			}
		}
	}
	h.Add("Vary", name)
}
