// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestProxyConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *ProxyConfig)
		err    string
	}{
		{
			name:   "default",
			modify: func(c *ProxyConfig) {},
		},
		{
			name:   "h2",
			modify: func(c *ProxyConfig) { c.Protocol = HTTP2Scheme },
		},
		{
			name:   "plain http",
			modify: func(c *ProxyConfig) { c.Protocol = HTTPScheme },
			err:    "unsupported protocol: http",
		},
		{
			name:   "no cert",
			modify: func(c *ProxyConfig) { c.CertFile = "" },
			err:    "TLS certificate and key files are required",
		},
		{
			name:   "port zero",
			modify: func(c *ProxyConfig) { c.Port = 0 },
			err:    "port: 0 out of range",
		},
		{
			name:   "upstream port too big",
			modify: func(c *ProxyConfig) { c.UpstreamPort = 70000 },
			err:    "upstream port: 70000 out of range",
		},
		{
			name:   "no upstream host",
			modify: func(c *ProxyConfig) { c.UpstreamHost = "" },
			err:    "upstream host cannot be empty",
		},
		{
			name:   "zero timeout",
			modify: func(c *ProxyConfig) { c.UpstreamTimeout = 0 },
			err:    "upstream timeout must be positive",
		},
		{
			name: "password without username",
			modify: func(c *ProxyConfig) {
				c.Username = ""
				c.Password = "secret"
			},
			err: "username cannot be empty",
		},
		{
			name: "multiple errors",
			modify: func(c *ProxyConfig) {
				c.UpstreamHost = ""
				c.UpstreamTimeout = -time.Second
			},
			err: "upstream host cannot be empty; upstream timeout must be positive",
		},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultProxyConfig()
			tc.modify(c)

			err := c.Validate()
			if err != nil {
				if tc.err == "" {
					t.Fatalf("expected success, got %q", err)
				}
				if !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error to contain %q, got %q", tc.err, err)
				}
				return
			}
			if tc.err != "" {
				t.Fatalf("expected error %q, got nil", tc.err)
			}
		})
	}
}

func TestProxyConfigAddresses(t *testing.T) {
	c := DefaultProxyConfig()
	if got := c.ListenAddress(); got != "0.0.0.0:11435" {
		t.Errorf("unexpected listen address %q", got)
	}
	if got := c.UpstreamURL(); got != "http://127.0.0.1:11434" {
		t.Errorf("unexpected upstream url %q", got)
	}

	c.UpstreamHost = "::1"
	if got := c.UpstreamAddress(); got != "[::1]:11434" {
		t.Errorf("unexpected upstream address %q", got)
	}

	if c.AuthEnabled() || c.E2EEnabled() {
		t.Error("auth and E2E should be disabled by default")
	}
}

func TestParsePort(t *testing.T) {
	if p, err := ParsePort("8443"); err != nil || p != 8443 {
		t.Fatalf("got %d, %v", p, err)
	}
	for _, val := range []string{"", "abc", "0", "65536", "-1"} {
		if _, err := ParsePort(val); err == nil {
			t.Errorf("%q: expected error", val)
		}
	}
}

func TestOpenFileParser(t *testing.T) {
	p := OpenFileParser(os.O_CREATE|os.O_WRONLY, 0o600, 0o700)

	f, err := p("")
	if err != nil || f != nil {
		t.Fatalf("expected nil file for empty path, got %v, %v", f, err)
	}

	name := filepath.Join(t.TempDir(), "logs", "sealproxy.log")
	f, err = p(name)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := os.Stat(name); err != nil {
		t.Fatal(err)
	}
}

func TestRedactSecret(t *testing.T) {
	if RedactSecret("") != "" {
		t.Error("empty secret should stay empty")
	}
	if RedactSecret("secret") != "xxxxx" {
		t.Error("secret should be redacted")
	}
}
