// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zrb-bund/sealproxy/internal/version"
	"github.com/zrb-bund/sealproxy/utils/httphandler"
)

// DefaultAPIServerConfig returns the plain HTTP API server configuration.
func DefaultAPIServerConfig() *HTTPServerConfig {
	return &HTTPServerConfig{
		Protocol:          HTTPScheme,
		Addr:              "localhost:10000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

type readiness interface {
	Ready() bool
}

// ConfigFormat is a rendering of the configuration served at /configz.
type ConfigFormat string

const (
	ConfigPlain ConfigFormat = "plain"
	ConfigJSON  ConfigFormat = "json"
	ConfigYAML  ConfigFormat = "yaml"
)

var configContentType = map[ConfigFormat]string{ //nolint:gochecknoglobals // read only
	ConfigPlain: "text/plain; charset=utf-8",
	ConfigJSON:  "application/json",
	ConfigYAML:  "application/yaml",
}

// APIHandler serves API endpoints.
// It provides health and readiness endpoints, prometheus metrics, the redacted configuration and pprof debug endpoints.
type APIHandler struct {
	mux    *http.ServeMux
	server readiness
	config map[ConfigFormat]string
}

// NewAPIHandler returns the API handler, config holds the configuration renderings, secrets must be redacted.
func NewAPIHandler(r prometheus.Gatherer, s readiness, config map[ConfigFormat]string) *APIHandler {
	m := http.NewServeMux()
	a := &APIHandler{
		mux:    m,
		server: s,
		config: config,
	}
	m.Handle("/metrics", promhttp.HandlerFor(r, promhttp.HandlerOpts{}))
	m.Handle("/healthz", httphandler.SendFileString("text/plain; charset=utf-8", "OK"))
	m.HandleFunc("/readyz", a.readyz)
	m.HandleFunc("/configz", a.configz)
	m.Handle("/version", httphandler.SendJSON(version.Get()))

	m.HandleFunc("/debug/pprof/", pprof.Index)
	m.HandleFunc("/debug/pprof/profile", pprof.Profile)
	m.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	m.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return a
}

func (h *APIHandler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.server.Ready() {
		httphandler.SendFileString("text/plain; charset=utf-8", "OK").ServeHTTP(w, r)
	} else {
		httphandler.Status(http.StatusServiceUnavailable).ServeHTTP(w, r)
	}
}

func (h *APIHandler) configz(w http.ResponseWriter, r *http.Request) {
	f := ConfigFormat(r.URL.Query().Get("format"))
	if f == "" {
		f = ConfigPlain
	}
	c, ok := h.config[f]
	if !ok {
		httphandler.Status(http.StatusBadRequest).ServeHTTP(w, r)
		return
	}
	httphandler.SendFileString(configContentType[f], c).ServeHTTP(w, r)
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}
