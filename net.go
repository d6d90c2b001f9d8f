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
)

func defaultListenConfig() *net.ListenConfig {
	return &net.ListenConfig{
		KeepAlive: -1,
		Control: func(network, address string, c syscall.RawConn) error {
			return c.Control(enableTCPKeepAlive)
		},
	}
}

// Listen announces on the local network address with TCP keep-alive enabled.
func Listen(network, address string) (net.Listener, error) {
	// The context cancellation does not close the listener.
	return defaultListenConfig().Listen(context.Background(), network, address)
}

// meteredListener counts accepted and closed connections.
type meteredListener struct {
	net.Listener
	metrics *listenerMetrics
}

func (l *meteredListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		l.metrics.errors.Inc()
		return nil, err
	}
	l.metrics.accepted.Inc()

	return &meteredConn{Conn: c, closed: l.metrics.closed.Inc}, nil
}

type meteredConn struct {
	net.Conn
	closed    func()
	closeOnce sync.Once
}

func (c *meteredConn) Close() error {
	c.closeOnce.Do(c.closed)
	return c.Conn.Close()
}
