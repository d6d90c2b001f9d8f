// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
	"time"
)

// LogEntry describes a served request.
// It deliberately carries no bodies.
type LogEntry struct {
	Request  *http.Request
	Status   int
	Written  int64
	Duration time.Duration
}

type Logger func(e LogEntry)

func (l Logger) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := newDelegator(w, nil)

		start := time.Now()
		defer func() {
			// Aborted streams still get an entry, the panic is passed on to net/http.
			l(LogEntry{
				Request:  r,
				Status:   d.Status(),
				Written:  d.Written(),
				Duration: time.Since(start),
			})
		}()

		h.ServeHTTP(d, r)
	})
}
