// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package templates

import (
	"strings"

	"github.com/spf13/pflag"
)

// FlagGroup is a named section of the help output.
// A flag belongs to the group with the longest matching prefix, an empty prefix matches all flags.
type FlagGroup struct {
	Name   string
	Prefix []string
}

type FlagGroups []FlagGroup

// splitFlagSet splits a flag set into one flag set per group, in the order of the groups.
// If multiple groups match a flag with the same prefix length, the flag is added to the first group.
// Flags that match no group are returned in the last set.
func (g FlagGroups) splitFlagSet(fs *pflag.FlagSet) []*pflag.FlagSet {
	result := make([]*pflag.FlagSet, len(g)+1)
	for i := range g {
		result[i] = pflag.NewFlagSet(g[i].Name, pflag.ContinueOnError)
	}
	result[len(g)] = pflag.NewFlagSet("", pflag.ContinueOnError)

	fs.VisitAll(func(f *pflag.Flag) {
		best, bestLen := len(g), -1
		for i := range g {
			for _, p := range g[i].Prefix {
				if strings.HasPrefix(f.Name, p) && len(p) > bestLen {
					best, bestLen = i, len(p)
				}
			}
		}
		result[best].AddFlag(f)
	})

	return result
}
