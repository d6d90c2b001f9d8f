// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"context"
	"net/http"

	"github.com/zrb-bund/sealproxy/credential"
	"github.com/zrb-bund/sealproxy/e2e"
	"github.com/zrb-bund/sealproxy/httplog"
	"github.com/zrb-bund/sealproxy/log"
	"github.com/zrb-bund/sealproxy/middleware"
)

// AuthRealm is the basic authentication realm sent in WWW-Authenticate.
const AuthRealm = "Ollama Proxy"

// ProxyServer is the TLS reverse proxy in front of the upstream.
// Every request goes through CORS, basic authentication (if enabled) and the forwarding engine.
type ProxyServer struct {
	config  ProxyConfig
	log     log.StructuredLogger
	engine  *engine
	metrics *proxyMetrics
	handler http.Handler
	server  *HTTPServer
}

// NewProxyServer validates the configuration, loads the TLS key pair and builds the handler chain.
// The configuration must not be modified after this call.
func NewProxyServer(cfg *ProxyConfig, l log.StructuredLogger) (*ProxyServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = log.NopLogger
	}

	ps := &ProxyServer{
		config:  *cfg,
		log:     l,
		metrics: newProxyMetrics(cfg.PromRegistry, cfg.PromNamespace),
	}

	if err := ps.configureHandler(); err != nil {
		return nil, err
	}

	hsCfg := ps.config.HTTPServerConfig
	hsCfg.Addr = ps.config.ListenAddress()
	hs, err := NewHTTPServer(&hsCfg, ps.handler, l)
	if err != nil {
		return nil, err
	}
	ps.server = hs

	return ps, nil
}

func (ps *ProxyServer) configureHandler() error {
	cfg := &ps.config

	tr := DefaultHTTPTransportConfig()
	tr.IdleTimeout = cfg.UpstreamTimeout
	if tr.IdleConnTimeout >= tr.IdleTimeout {
		tr.IdleConnTimeout = tr.IdleTimeout / 2
	}
	tr.PromNamespace = cfg.PromNamespace
	tr.PromRegistry = cfg.PromRegistry

	var codec *e2e.Codec
	if cfg.E2EEnabled() {
		codec = e2e.NewCodec(cfg.E2EPassword)
	}

	ps.engine = &engine{
		upstreamURL:  cfg.UpstreamURL(),
		upstreamHost: cfg.UpstreamAddress(),
		transport:    NewHTTPTransport(tr),
		codec:        codec,
		e2eRequired:  cfg.E2ERequired,
		cors:         CORSPolicy{},
		metrics:      ps.metrics,
		log:          ps.log,
	}

	h := http.Handler(ps.engine)

	if cfg.AuthEnabled() {
		v, err := credential.New(cfg.Username, cfg.Password)
		if err != nil {
			return err
		}
		ba := middleware.NewBasicAuth(v, AuthRealm)
		ba.OnFailure = func(r *http.Request) {
			ps.metrics.authFailure()
			ps.log.DebugContext(r.Context(), "request rejected, invalid credentials",
				"method", r.Method, "path", r.URL.Path, "request_id", middleware.ContextRequestID(r.Context()))
		}
		ba.Unauthorized = unauthorizedHandler
		h = ba.Wrap(h)
	}

	h = middleware.CORS{Policy: ps.engine.cors}.Wrap(h)

	mode := cfg.LogHTTPMode
	if cfg.Debug {
		mode = httplog.URL
	}
	h = httplog.NewLogger(ps.log.Info, mode).LogFunc().Wrap(h)

	h = newRequestMetrics(cfg.PromRegistry, cfg.PromNamespace, ps.engine.modeLabel).Wrap(h)

	ps.handler = middleware.RequestID(h)

	return nil
}

// Handler returns the proxy handler without the TLS listener.
func (ps *ProxyServer) Handler() http.Handler {
	return ps.handler
}

// Listen binds the TLS listener and reports the effective configuration.
func (ps *ProxyServer) Listen() error {
	if ps.server.Ready() {
		return nil
	}
	if err := ps.server.Listen(); err != nil {
		return err
	}

	cfg := &ps.config
	ps.log.Info("proxy listening",
		"address", "https://"+ps.server.Addr(),
		"protocol", string(cfg.Protocol),
		"upstream", cfg.UpstreamURL(),
		"auth", cfg.AuthEnabled(),
		"e2e", cfg.E2EEnabled(),
		"e2e_required", cfg.E2ERequired,
	)
	if cfg.E2ERequired && !cfg.E2EEnabled() {
		ps.log.Warn("E2E is required but no E2E password is configured, unencrypted requests are accepted")
	}

	return nil
}

// Addr returns the bound address or an empty string if the listener is not bound.
func (ps *ProxyServer) Addr() string {
	return ps.server.Addr()
}

// Ready reports whether the TLS listener is bound.
func (ps *ProxyServer) Ready() bool {
	return ps.server.Ready()
}

// Run serves until ctx is done.
func (ps *ProxyServer) Run(ctx context.Context) error {
	if err := ps.Listen(); err != nil {
		return err
	}
	return ps.server.Run(ctx)
}
