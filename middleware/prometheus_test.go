// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusWrap(t *testing.T) {
	h := http.NewServeMux()
	h.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	h.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	r := prometheus.NewPedanticRegistry()
	p := NewPrometheus(r, "test", WithCustomLabeler("mode", func(r *http.Request) string {
		return r.Header.Get("X-Mode")
	}))
	s := p.Wrap(h)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for _, path := range []string{"/ok", "/fail"} {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
				req.Header.Set("X-Mode", "stream")
				s.ServeHTTP(httptest.NewRecorder(), req)
			}(path)
		}
	}
	wg.Wait()

	if got := testutil.ToFloat64(p.requestsTotal.WithLabelValues("200", "POST", "stream")); got != n {
		t.Errorf("expected %d ok requests, got %v", n, got)
	}
	if got := testutil.ToFloat64(p.requestsTotal.WithLabelValues("502", "POST", "stream")); got != n {
		t.Errorf("expected %d failed requests, got %v", n, got)
	}
	if got := testutil.ToFloat64(p.requestsInFlight.WithLabelValues("POST", "stream")); got != 0 {
		t.Errorf("expected no requests in flight, got %v", got)
	}
	if got := testutil.CollectAndCount(r, "test_http_request_duration_seconds"); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}
}

func TestPrometheusWrapAbortedHandler(t *testing.T) {
	p := NewPrometheus(nil, "test")
	s := p.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		panic(http.ErrAbortHandler)
	}))

	func() {
		defer func() {
			if v := recover(); v != http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
				t.Fatalf("expected ErrAbortHandler panic, got %v", v)
			}
		}()
		s.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	}()

	if got := testutil.ToFloat64(p.requestsTotal.WithLabelValues("200", "GET")); got != 1 {
		t.Fatalf("expected aborted request to be counted, got %v", got)
	}
	if got := testutil.ToFloat64(p.requestsInFlight.WithLabelValues("GET")); got != 0 {
		t.Fatalf("expected no requests in flight, got %v", got)
	}
}
