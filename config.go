// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zrb-bund/sealproxy/httplog"
	"go.uber.org/multierr"
)

// ProxyConfig is the proxy configuration, it is not modified after NewProxyServer.
// The embedded HTTPServerConfig Addr is derived from ListenHost and Port.
type ProxyConfig struct {
	HTTPServerConfig

	ListenHost string
	Port       int

	UpstreamHost    string
	UpstreamPort    int
	UpstreamTimeout time.Duration

	Debug bool

	// Username and Password protect the proxy with basic authentication.
	// Empty Password disables authentication.
	Username string
	Password string

	// E2EPassword enables end-to-end encrypted requests.
	E2EPassword string
	// E2ERequired rejects requests that are not encrypted, it requires E2EPassword.
	E2ERequired bool

	// LogHTTPMode selects the access log verbosity, Debug forces httplog.URL.
	LogHTTPMode httplog.Mode
}

func DefaultProxyConfig() *ProxyConfig {
	return &ProxyConfig{
		HTTPServerConfig: HTTPServerConfig{
			Protocol:          HTTPSScheme,
			CertFile:          filepath.Join("certs", "fullchain.pem"),
			KeyFile:           filepath.Join("certs", "key.pem"),
			ReadHeaderTimeout: 30 * time.Second,
			IdleTimeout:       5 * time.Minute,
			ShutdownTimeout:   30 * time.Second,
			PromNamespace:     "sealproxy",
		},
		ListenHost:      "0.0.0.0",
		Port:            11435,
		UpstreamHost:    "127.0.0.1",
		UpstreamPort:    11434,
		UpstreamTimeout: 120 * time.Second,
		Username:        "user",
		LogHTTPMode:     httplog.DefaultMode,
	}
}

func (c *ProxyConfig) Validate() error {
	var err error

	if c.Protocol != HTTPSScheme && c.Protocol != HTTP2Scheme {
		err = multierr.Append(err, fmt.Errorf("unsupported protocol: %s", c.Protocol))
	}
	if c.CertFile == "" || c.KeyFile == "" {
		err = multierr.Append(err, errors.New("TLS certificate and key files are required"))
	}
	if c.ListenHost == "" {
		err = multierr.Append(err, errors.New("listen host cannot be empty"))
	}
	if e := validatePort(c.Port); e != nil {
		err = multierr.Append(err, fmt.Errorf("port: %w", e))
	}
	if c.UpstreamHost == "" {
		err = multierr.Append(err, errors.New("upstream host cannot be empty"))
	}
	if e := validatePort(c.UpstreamPort); e != nil {
		err = multierr.Append(err, fmt.Errorf("upstream port: %w", e))
	}
	if c.UpstreamTimeout <= 0 {
		err = multierr.Append(err, errors.New("upstream timeout must be positive"))
	}
	if c.Password != "" && c.Username == "" {
		err = multierr.Append(err, errors.New("username cannot be empty when password is set"))
	}

	return err
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%d out of range 1-65535", port)
	}
	return nil
}

// ListenAddress returns the host:port the proxy listens on.
func (c *ProxyConfig) ListenAddress() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.Port))
}

// UpstreamAddress returns the upstream host:port, it is also the Host header sent upstream.
func (c *ProxyConfig) UpstreamAddress() string {
	return net.JoinHostPort(c.UpstreamHost, strconv.Itoa(c.UpstreamPort))
}

// UpstreamURL returns the upstream base URL.
func (c *ProxyConfig) UpstreamURL() string {
	return "http://" + c.UpstreamAddress()
}

func (c *ProxyConfig) AuthEnabled() bool {
	return c.Password != ""
}

func (c *ProxyConfig) E2EEnabled() bool {
	return c.E2EPassword != ""
}

// ParsePort parses a TCP port number.
func ParsePort(val string) (int, error) {
	p, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", val)
	}
	if err := validatePort(p); err != nil {
		return 0, err
	}
	return p, nil
}

// RedactSecret hides non-empty secrets in configuration dumps.
func RedactSecret(s string) string {
	if s == "" {
		return ""
	}
	return "xxxxx"
}

func OpenFileParser(flag int, perm, dirPerm os.FileMode) func(val string) (*os.File, error) {
	return func(val string) (*os.File, error) {
		if val == "" {
			return nil, nil
		}

		if dirPerm != 0 {
			dir := filepath.Dir(val)
			if err := os.MkdirAll(dir, dirPerm); err != nil {
				return nil, err
			}
		}
		return os.OpenFile(val, flag, perm)
	}
}
