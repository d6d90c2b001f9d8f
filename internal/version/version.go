// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package version holds the build information set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version = "devel"
	Time    = "unknown"
	Commit  = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version string `json:"version"`
	Time    string `json:"time"`
	Commit  string `json:"commit"`

	GoArch    string `json:"go_arch"`
	GoOS      string `json:"go_os"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Time:      Time,
		Commit:    Commit,
		GoArch:    runtime.GOARCH,
		GoOS:      runtime.GOOS,
		GoVersion: runtime.Version(),
	}
}

// String prints the version in a tabular form.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintln(&sb, "Version:\t", i.Version)
	fmt.Fprintln(&sb, "Built time:\t", i.Time)
	fmt.Fprintln(&sb, "Git commit:\t", i.Commit)
	fmt.Fprintln(&sb, "Go Arch:\t", i.GoArch)
	fmt.Fprintln(&sb, "Go OS:\t\t", i.GoOS)
	fmt.Fprintln(&sb, "Go Version:\t", i.GoVersion)
	return sb.String()
}
