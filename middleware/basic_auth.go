// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
)

const AuthorizationHeader = "Authorization"

// CredentialValidator checks an Authorization header value.
type CredentialValidator interface {
	Validate(authorization string) bool
}

// BasicAuth protects a handler with HTTP Basic Authentication.
//
// See https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Authorization
type BasicAuth struct {
	validator CredentialValidator
	realm     string

	// OnFailure, if set, is called for every rejected request.
	OnFailure func(r *http.Request)

	// Unauthorized writes the response for rejected requests.
	// The WWW-Authenticate challenge is set before it is called.
	// If nil, a bare 401 is sent.
	Unauthorized http.Handler
}

func NewBasicAuth(v CredentialValidator, realm string) *BasicAuth {
	return &BasicAuth{
		validator: v,
		realm:     realm,
	}
}

// Wrap wraps the provided http.Handler with basic authentication.
// If the request is not authenticated, the handler is not called and a 401 Unauthorized is returned.
func (ba *BasicAuth) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ba.validator.Validate(r.Header.Get(AuthorizationHeader)) {
			if ba.OnFailure != nil {
				ba.OnFailure(r)
			}

			w.Header().Set("WWW-Authenticate", "Basic realm=\""+ba.realm+"\"")
			if ba.Unauthorized != nil {
				ba.Unauthorized.ServeHTTP(w, r)
			} else {
				w.WriteHeader(http.StatusUnauthorized)
			}
			return
		}

		// Do not expose the authentication header to the upstream servers.
		r.Header.Del(AuthorizationHeader)
		h.ServeHTTP(w, r)
	})
}
