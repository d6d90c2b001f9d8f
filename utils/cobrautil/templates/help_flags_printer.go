// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package templates

import (
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/pflag"
	"github.com/zrb-bund/sealproxy/utils/cobrautil"
)

// usageIndent is the width taken by the tab before usage lines.
const usageIndent = 10

// flagPrinter writes a flag header line followed by its usage indented with a tab.
// The env variable is omitted when envPrefix is empty.
type flagPrinter struct {
	out       io.Writer
	envPrefix string
}

func (p flagPrinter) print(f *pflag.Flag) {
	placeholder, usage := splitUsage(f)

	var b strings.Builder
	if f.Shorthand != "" {
		fmt.Fprintf(&b, "-%s, ", f.Shorthand)
	} else {
		b.WriteString("    ")
	}
	b.WriteString("--" + f.Name)
	if placeholder != "" {
		b.WriteString(" " + placeholder)
	}
	if def := defaultValue(f); def != "" {
		fmt.Fprintf(&b, " (default %s)", def)
	}
	if p.envPrefix != "" {
		fmt.Fprintf(&b, " (env %s)", cobrautil.EnvName(p.envPrefix, f.Name))
	}
	b.WriteString(":\n")
	b.WriteString(wordwrap.WrapString(strings.TrimSpace(usage), wrapLimit-usageIndent))

	fmt.Fprint(p.out, strings.ReplaceAll(b.String(), "\n", "\n\t")+"\n\n")
}

func defaultValue(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "[]":
		return ""
	}
	if f.Value.Type() == "string" {
		return "'" + f.DefValue + "'"
	}
	return f.DefValue
}

// splitUsage returns the value placeholder and the remaining usage text.
// A usage starting with <...> carries its own placeholder, brackets may nest.
func splitUsage(f *pflag.Flag) (placeholder, usage string) {
	if strings.HasPrefix(f.Usage, "<") {
		depth := 0
		for i, r := range f.Usage {
			switch r {
			case '<':
				depth++
			case '>':
				depth--
			}
			if depth == 0 {
				return f.Usage[:i+1], f.Usage[i+1:]
			}
		}
	}

	name, usage := pflag.UnquoteUsage(f)
	if f.Value.Type() == "bool" {
		return "", usage
	}
	if name == "" || name == "string" {
		name = "value"
	}
	return "<" + name + ">", usage
}
