// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httphandler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	return rec
}

func TestSendFileString(t *testing.T) {
	rec := serve(SendFileString("text/plain", "a=b\n"))
	if rec.Header().Get("Content-Type") != "text/plain" || rec.Body.String() != "a=b\n" {
		t.Fatalf("unexpected response %v %q", rec.Header(), rec.Body.String())
	}
	if rec.Header().Get("Content-Length") != "4" {
		t.Fatalf("unexpected content length %q", rec.Header().Get("Content-Length"))
	}
}

func TestSendJSON(t *testing.T) {
	rec := serve(SendJSON(struct {
		Version string `json:"version"`
	}{"1.0"}))
	if got := rec.Body.String(); got != "{\"version\":\"1.0\"}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestStatus(t *testing.T) {
	rec := serve(Status(http.StatusServiceUnavailable))
	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "Service Unavailable" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}
