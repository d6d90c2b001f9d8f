// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"context"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type DialConfig struct {
	// DialTimeout is the maximum amount of time a dial will wait for
	// connect to complete.
	DialTimeout time.Duration

	// KeepAlive enables TCP keep-alive probes for an active network connection.
	// The keep-alive probes are sent with OS specific intervals.
	KeepAlive bool

	// IdleTimeout closes connections that do not read or write anything for the duration.
	// Every read and write extends the deadline in both directions.
	// Zero means no limit.
	IdleTimeout time.Duration

	PromNamespace string
	PromRegistry  prometheus.Registerer
}

func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		DialTimeout: 10 * time.Second,
		KeepAlive:   true,
		IdleTimeout: 120 * time.Second,
	}
}

type Dialer struct {
	nd          net.Dialer
	idleTimeout time.Duration
	metrics     *dialerMetrics
}

func NewDialer(cfg *DialConfig) *Dialer {
	nd := net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: -1,
	}

	if cfg.KeepAlive {
		nd.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(enableTCPKeepAlive)
		}
	}

	return &Dialer{
		nd:          nd,
		idleTimeout: cfg.IdleTimeout,
		metrics:     newDialerMetrics(cfg.PromRegistry, cfg.PromNamespace),
	}
}

func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.nd.DialContext(ctx, network, address)
	if err != nil {
		d.metrics.error(address)
		return nil, err
	}
	d.metrics.dial(address)

	tc := &trackedConn{
		Conn:        conn,
		idleTimeout: d.idleTimeout,
		onClose: func() {
			d.metrics.close(address)
		},
	}
	if err := tc.extendDeadline(); err != nil {
		tc.Close()
		return nil, err
	}

	return tc, nil
}

// trackedConn enforces the idle timeout and reports close exactly once.
type trackedConn struct {
	net.Conn
	idleTimeout time.Duration
	onClose     func()
	closeOnce   sync.Once
}

func (c *trackedConn) extendDeadline() error {
	if c.idleTimeout <= 0 {
		return nil
	}
	return c.Conn.SetDeadline(time.Now().Add(c.idleTimeout))
}

func (c *trackedConn) Read(b []byte) (int, error) {
	if err := c.extendDeadline(); err != nil {
		return 0, err
	}
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.extendDeadline() //nolint:errcheck // next read or write reports it
	}
	return n, err
}

func (c *trackedConn) Write(b []byte) (int, error) {
	if err := c.extendDeadline(); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

func (c *trackedConn) Close() error {
	c.closeOnce.Do(c.onClose)
	return c.Conn.Close()
}
