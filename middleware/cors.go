// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
)

// CORSPolicy sets the CORS response headers for a request origin.
type CORSPolicy interface {
	Apply(h http.Header, origin string)
}

// CORS applies the policy to every response before the wrapped handler runs,
// so that error responses carry the headers too.
// Preflight (OPTIONS) requests are answered with 204 No Content and never reach the wrapped handler.
type CORS struct {
	Policy CORSPolicy
}

func (c CORS) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Policy.Apply(w.Header(), r.Header.Get("Origin"))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		h.ServeHTTP(w, r)
	})
}
