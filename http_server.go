// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zrb-bund/sealproxy/log"
	"github.com/zrb-bund/sealproxy/tlsutil"
	"golang.org/x/net/http2"
)

type Scheme string

const (
	HTTPScheme  Scheme = "http"
	HTTPSScheme Scheme = "https"
	HTTP2Scheme Scheme = "h2"
)

func (s Scheme) String() string {
	return string(s)
}

// TLSSchemes are the schemes the proxy listener can serve.
var TLSSchemes = []Scheme{HTTPSScheme, HTTP2Scheme} //nolint:gochecknoglobals // this is needed for parsing

type HTTPServerConfig struct {
	Protocol Scheme
	Addr     string
	CertFile string
	KeyFile  string

	// WatchCert reloads the certificate and key when the files change.
	WatchCert bool

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	PromNamespace string
	PromRegistry  prometheus.Registerer
}

// HTTPServer serves a handler over TLS, or plain HTTP for HTTPScheme.
type HTTPServer struct {
	config  HTTPServerConfig
	log     log.StructuredLogger
	srv     *http.Server
	certs   *tlsutil.CertReloader
	metrics *listenerMetrics

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPServer loads the TLS key pair for TLS schemes, missing or invalid files are an error.
func NewHTTPServer(cfg *HTTPServerConfig, h http.Handler, l log.StructuredLogger) (*HTTPServer, error) {
	if l == nil {
		l = log.NopLogger
	}

	hs := &HTTPServer{
		config:  *cfg,
		log:     l,
		metrics: newListenerMetrics(cfg.PromRegistry, cfg.PromNamespace),
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          nil,
		},
	}

	if cfg.Protocol == HTTPSScheme || cfg.Protocol == HTTP2Scheme {
		if err := hs.loadCertificate(); err != nil {
			return nil, err
		}
	}

	switch cfg.Protocol {
	case HTTPScheme:
		// Plain HTTP is used for the API server only.
	case HTTPSScheme:
		hs.configureHTTPS()
	case HTTP2Scheme:
		if err := hs.configureHTTP2(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported protocol %q", cfg.Protocol)
	}

	return hs, nil
}

func (hs *HTTPServer) loadCertificate() error {
	if hs.config.CertFile == "" || hs.config.KeyFile == "" {
		return errors.New("TLS certificate and key files are required")
	}
	certs, err := tlsutil.NewCertReloader(hs.config.CertFile, hs.config.KeyFile, hs.log.With("name", "tls"))
	if err != nil {
		return err
	}
	hs.certs = certs
	return nil
}

func (hs *HTTPServer) tlsConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: hs.certs.GetCertificate,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// configureHTTPS serves HTTP/1.1 only.
func (hs *HTTPServer) configureHTTPS() {
	tlsCfg := hs.tlsConfig()
	tlsCfg.NextProtos = []string{"http/1.1"}

	hs.srv.TLSConfig = tlsCfg
	hs.srv.TLSNextProto = make(map[string]func(*http.Server, *tls.Conn, http.Handler))
}

func (hs *HTTPServer) configureHTTP2() error {
	hs.srv.TLSConfig = hs.tlsConfig()
	return http2.ConfigureServer(hs.srv, &http2.Server{
		IdleTimeout: hs.config.IdleTimeout,
	})
}

// Listen binds the listener, it is called by Run if needed.
func (hs *HTTPServer) Listen() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener != nil {
		return nil
	}

	ll, err := Listen("tcp", hs.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to open listener on address %s: %w", hs.config.Addr, err)
	}
	hs.listener = &meteredListener{Listener: ll, metrics: hs.metrics}

	return nil
}

// Addr returns the bound address or an empty string if the listener is not bound.
func (hs *HTTPServer) Addr() string {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener == nil {
		return ""
	}
	return hs.listener.Addr().String()
}

// Ready reports whether the listener is bound.
func (hs *HTTPServer) Ready() bool {
	return hs.Addr() != ""
}

// Run serves until ctx is done and then shuts down gracefully.
func (hs *HTTPServer) Run(ctx context.Context) error {
	if err := hs.Listen(); err != nil {
		return err
	}

	hs.mu.Lock()
	l := hs.listener
	if hs.srv.TLSConfig != nil {
		l = tls.NewListener(l, hs.srv.TLSConfig)
	}
	hs.mu.Unlock()

	hs.log.Info("HTTP server listen", "address", l.Addr().String(), "protocol", string(hs.config.Protocol))

	// Stop the helper goroutines also when Serve fails.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if hs.config.WatchCert && hs.certs != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hs.certs.Watch(ctx); err != nil {
				hs.log.Error("TLS certificate watcher stopped", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		hs.shutdown()
	}()

	err := hs.srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		hs.log.Debug("server was shutdown gracefully")
		err = nil
	}
	cancel()
	wg.Wait()

	return err
}

func (hs *HTTPServer) shutdown() {
	timeout := hs.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := hs.srv.Shutdown(ctx); err != nil {
		hs.log.Error("failed to shutdown server gracefully, closing connections", "error", err)
		hs.srv.Close()
	}
}
