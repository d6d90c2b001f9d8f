// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	old := Version
	Version = "1.2.3"
	defer func() { Version = old }()

	i := Get()
	if i.Version != "1.2.3" {
		t.Errorf("unexpected version %q", i.Version)
	}
	if i.GoVersion != runtime.Version() {
		t.Errorf("unexpected go version %q", i.GoVersion)
	}
	if !strings.Contains(i.String(), "1.2.3") {
		t.Errorf("version missing from %q", i.String())
	}
}
