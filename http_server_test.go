// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func tlsClient(t *testing.T, certFile string, h2 bool) *http.Client {
	t.Helper()

	b, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatal(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(b) {
		t.Fatal("failed to parse certificate")
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    pool,
			ServerName: "localhost",
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2: h2,
	}
	t.Cleanup(tr.CloseIdleConnections)

	return &http.Client{Transport: tr, Timeout: 10 * time.Second}
}

func runHTTPServer(t *testing.T, hs *HTTPServer) {
	t.Helper()

	if err := hs.Listen(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- hs.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Error(err)
		}
	})
}

func protoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.Proto)
	})
}

func TestHTTPServerProtocols(t *testing.T) {
	certFile, keyFile := writeTestCert(t)

	tests := []struct {
		protocol Scheme
		h2       bool
		want     string
	}{
		{HTTPSScheme, false, "HTTP/1.1"},
		{HTTPSScheme, true, "HTTP/1.1"},
		{HTTP2Scheme, true, "HTTP/2.0"},
		{HTTP2Scheme, false, "HTTP/1.1"},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(string(tc.protocol), func(t *testing.T) {
			cfg := &HTTPServerConfig{
				Protocol:          tc.protocol,
				Addr:              "127.0.0.1:0",
				CertFile:          certFile,
				KeyFile:           keyFile,
				ReadHeaderTimeout: time.Second,
				ShutdownTimeout:   time.Second,
			}
			hs, err := NewHTTPServer(cfg, protoHandler(), nil)
			if err != nil {
				t.Fatal(err)
			}
			runHTTPServer(t, hs)

			res, err := tlsClient(t, certFile, tc.h2).Get("https://" + hs.Addr() + "/")
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()
			b, err := io.ReadAll(res.Body)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tc.want {
				t.Errorf("expected %s, got %s", tc.want, b)
			}
		})
	}
}

func TestHTTPServerPlainHTTP(t *testing.T) {
	hs, err := NewHTTPServer(&HTTPServerConfig{
		Protocol: HTTPScheme,
		Addr:     "127.0.0.1:0",
	}, protoHandler(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if hs.Ready() {
		t.Fatal("server must not be ready before listen")
	}
	runHTTPServer(t, hs)
	if !hs.Ready() {
		t.Fatal("server must be ready after listen")
	}

	res, err := http.Get("http://" + hs.Addr() + "/")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("unexpected status %d", res.StatusCode)
	}
}

func TestNewHTTPServerCertificateErrors(t *testing.T) {
	certFile, keyFile := writeTestCert(t)
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		certFile string
		keyFile  string
	}{
		{"empty", "", ""},
		{"missing cert", filepath.Join(t.TempDir(), "missing.pem"), keyFile},
		{"missing key", certFile, filepath.Join(t.TempDir(), "missing.pem")},
		{"invalid cert", garbage, keyFile},
		{"mismatched", certFile, garbage},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewHTTPServer(&HTTPServerConfig{
				Protocol: HTTPSScheme,
				Addr:     "127.0.0.1:0",
				CertFile: tc.certFile,
				KeyFile:  tc.keyFile,
			}, protoHandler(), nil)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewHTTPServerUnsupportedProtocol(t *testing.T) {
	if _, err := NewHTTPServer(&HTTPServerConfig{Protocol: "h3"}, protoHandler(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestHTTPServerListenerMetrics(t *testing.T) {
	r := prometheus.NewRegistry()
	hs, err := NewHTTPServer(&HTTPServerConfig{
		Protocol:      HTTPScheme,
		Addr:          "127.0.0.1:0",
		PromNamespace: "test",
		PromRegistry:  r,
	}, protoHandler(), nil)
	if err != nil {
		t.Fatal(err)
	}
	runHTTPServer(t, hs)

	c := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	for i := 0; i < 3; i++ {
		res, err := c.Get("http://" + hs.Addr() + "/")
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
	}

	if v := testutil.ToFloat64(hs.metrics.accepted); v != 3 {
		t.Errorf("expected 3 accepted connections, got %v", v)
	}
}
