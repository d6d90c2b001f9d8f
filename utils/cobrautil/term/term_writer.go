// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package term

import (
	"io"

	"github.com/mitchellh/go-wordwrap"
)

type wordWrapWriter struct {
	limit  uint
	writer io.Writer
}

// NewWordWrapWriter wraps words so that lines do not exceed limit characters.
// Each Write is wrapped separately, zero limit disables wrapping.
func NewWordWrapWriter(w io.Writer, limit uint) io.Writer {
	return wordWrapWriter{
		limit:  limit,
		writer: w,
	}
}

func (w wordWrapWriter) Write(p []byte) (int, error) {
	if w.limit == 0 {
		return w.writer.Write(p)
	}
	if _, err := io.WriteString(w.writer, wordwrap.WrapString(string(p), w.limit)); err != nil {
		return 0, err
	}
	return len(p), nil
}
