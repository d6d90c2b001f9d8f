// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zrb-bund/sealproxy/internal/version"
	"github.com/zrb-bund/sealproxy/utils/promutil"
)

type fakeReadiness struct {
	ready atomic.Bool
}

func (r *fakeReadiness) Ready() bool {
	return r.ready.Load()
}

func newAPITestServer(t *testing.T, s readiness) *httpexpect.Expect {
	t.Helper()

	r := prometheus.NewRegistry()
	RegisterMetrics(r, "sealproxy")

	config := map[ConfigFormat]string{
		ConfigPlain: "password=xxxxx\n",
		ConfigJSON:  `{"password":"xxxxx"}`,
		ConfigYAML:  "password: xxxxx\n",
	}
	hs := httptest.NewServer(NewAPIHandler(r, s, config))
	t.Cleanup(hs.Close)

	return httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  hs.URL,
		Client:   hs.Client(),
		Reporter: httpexpect.NewAssertReporter(t),
	})
}

func TestAPIHandlerHealth(t *testing.T) {
	s := &fakeReadiness{}
	e := newAPITestServer(t, s)

	e.GET("/healthz").Expect().Status(http.StatusOK).Body().IsEqual("OK")
	e.GET("/readyz").Expect().Status(http.StatusServiceUnavailable)

	s.ready.Store(true)
	e.GET("/readyz").Expect().Status(http.StatusOK).Body().IsEqual("OK")
}

func TestAPIHandlerConfig(t *testing.T) {
	e := newAPITestServer(t, &fakeReadiness{})

	tests := []struct {
		format      string
		contentType string
		body        string
	}{
		{"", "text/plain", "password=xxxxx\n"},
		{"plain", "text/plain", "password=xxxxx\n"},
		{"json", "application/json", `{"password":"xxxxx"}`},
		{"yaml", "application/yaml", "password: xxxxx\n"},
	}

	for i := range tests {
		tc := tests[i]
		req := e.GET("/configz")
		if tc.format != "" {
			req = req.WithQuery("format", tc.format)
		}
		res := req.Expect().Status(http.StatusOK)
		res.Header("Content-Type").Contains(tc.contentType)
		res.Body().IsEqual(tc.body)
	}

	e.GET("/configz").WithQuery("format", "toml").Expect().Status(http.StatusBadRequest)
}

func TestAPIHandlerVersion(t *testing.T) {
	e := newAPITestServer(t, &fakeReadiness{})

	obj := e.GET("/version").Expect().Status(http.StatusOK).JSON().Object()
	obj.Value("version").String().IsEqual(version.Version)
	obj.ContainsKey("go_version")
}

func TestAPIHandlerMetrics(t *testing.T) {
	e := newAPITestServer(t, &fakeReadiness{})

	body := e.GET("/metrics").Expect().Status(http.StatusOK).Body().Raw()
	g, err := promutil.ParseMetricFamilies(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	// Metrics without label values are exported right away.
	for _, name := range []string{
		"sealproxy_auth_failures_total",
		"sealproxy_e2e_decrypt_failures_total",
		"sealproxy_listener_accepted_total",
	} {
		if !g.Has(name) {
			t.Errorf("metric %s not found", name)
		}
	}
}
