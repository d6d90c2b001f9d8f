// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package httplog turns served requests into access log records.
// Records never contain headers or bodies, they may carry credentials or plaintext.
package httplog

import (
	"fmt"
	"net/http"

	"github.com/zrb-bund/sealproxy/middleware"
)

// Mode defines the logging verbosity.
type Mode string

const (
	None     Mode = "none"
	ShortURL Mode = "short-url"
	URL      Mode = "url"
	Errors   Mode = "errors"
)

var DefaultMode = Errors

func (m Mode) String() string {
	if m == "" {
		return DefaultMode.String()
	}
	return string(m)
}

func ParseMode(val string) (Mode, error) {
	switch m := Mode(val); m {
	case None, ShortURL, URL, Errors:
		return m, nil
	default:
		return "", fmt.Errorf("invalid mode %q", val)
	}
}

// Logger calls a structured log function for every served request according to the mode.
type Logger struct {
	log  func(msg string, args ...any)
	mode Mode
}

func NewLogger(logFunc func(msg string, args ...any), mode Mode) *Logger {
	if mode == "" {
		mode = DefaultMode
	}
	return &Logger{
		log:  logFunc,
		mode: mode,
	}
}

func (l *Logger) LogFunc() middleware.Logger {
	switch l.mode {
	case None:
		return func(e middleware.LogEntry) {}
	case ShortURL:
		return func(e middleware.LogEntry) {
			l.log("HTTP request", args(e, e.Request.URL.Path)...)
		}
	case URL:
		return func(e middleware.LogEntry) {
			l.log("HTTP request", args(e, redactedURI(e.Request))...)
		}
	case Errors:
		return func(e middleware.LogEntry) {
			if e.Status < http.StatusInternalServerError {
				return
			}
			l.log("HTTP request", args(e, e.Request.URL.Path)...)
		}
	default:
		panic(fmt.Sprintf("unknown log mode %s", l.mode))
	}
}

func args(e middleware.LogEntry, uri string) []any {
	a := []any{
		"method", e.Request.Method,
		"url", uri,
		"status", e.Status,
		"written", e.Written,
		"duration", e.Duration.String(),
	}
	if id := middleware.ContextRequestID(e.Request.Context()); id != "" {
		a = append(a, "request_id", id)
	}
	return a
}

// redactedURI returns the request path with the query, query values are not logged.
func redactedURI(r *http.Request) string {
	u := *r.URL
	u.User = nil
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			q.Set(k, "xxxxx")
		}
		u.RawQuery = q.Encode()
	}
	return u.RequestURI()
}
