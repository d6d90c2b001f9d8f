// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package templates renders command help with grouped flags and environment variable names.
package templates

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zrb-bund/sealproxy/utils/cobrautil/term"
)

const wrapLimit = 100

type CommandGroup struct {
	Message  string
	Commands []*cobra.Command
}

type CommandGroups []CommandGroup

// Add adds the commands of all groups to cmd.
func (g CommandGroups) Add(cmd *cobra.Command) {
	for _, cg := range g {
		cmd.AddCommand(cg.Commands...)
	}
}

func (g CommandGroups) contains(cmd *cobra.Command) bool {
	for _, cg := range g {
		for _, c := range cg.Commands {
			if c == cmd {
				return true
			}
		}
	}
	return false
}

type printer struct {
	root      *cobra.Command
	commands  CommandGroups
	flags     FlagGroups
	envPrefix string
}

// ActsAsRootCommand sets the help and usage functions of cmd, they are inherited by subcommands.
func ActsAsRootCommand(cmd *cobra.Command, cg CommandGroups, fg FlagGroups, envPrefix string) {
	p := &printer{
		root:      cmd,
		commands:  cg,
		flags:     fg,
		envPrefix: envPrefix,
	}
	cmd.SetUsageFunc(p.usage)
	cmd.SetHelpFunc(p.help)
}

func (p *printer) help(c *cobra.Command, _ []string) {
	w := c.OutOrStdout()
	if c.Long != "" {
		fmt.Fprintln(term.NewWordWrapWriter(w, wrapLimit), strings.TrimSpace(c.Long))
		fmt.Fprintln(w)
	}
	p.writeUsage(w, c)
}

func (p *printer) usage(c *cobra.Command) error {
	p.writeUsage(c.OutOrStderr(), c)
	return nil
}

func (p *printer) writeUsage(w io.Writer, c *cobra.Command) {
	fmt.Fprintf(w, "Usage:\n  %s\n", c.UseLine())

	if c.HasAvailableSubCommands() {
		p.writeCommands(w, c)
	}

	if c.HasExample() {
		fmt.Fprintf(w, "\nExamples:\n%s\n", strings.TrimRight(c.Example, "\n"))
	}

	p.writeFlags(w, c)

	if c.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\nUse \"%s <command> --help\" for more information about a command.\n", c.CommandPath())
	}
}

func (p *printer) writeCommands(w io.Writer, c *cobra.Command) {
	writeCmd := func(sc *cobra.Command) {
		fmt.Fprintf(w, "  %-*s %s\n", sc.NamePadding(), sc.Name(), sc.Short)
	}

	var other []*cobra.Command
	if c == p.root {
		for _, cg := range p.commands {
			fmt.Fprintf(w, "\n%s\n", cg.Message)
			for _, sc := range cg.Commands {
				if sc.IsAvailableCommand() {
					writeCmd(sc)
				}
			}
		}
		for _, sc := range c.Commands() {
			if sc.IsAvailableCommand() && !p.commands.contains(sc) {
				other = append(other, sc)
			}
		}
	} else {
		other = c.Commands()
	}

	if len(other) == 0 {
		return
	}
	if c == p.root && len(p.commands) > 0 {
		fmt.Fprintln(w, "\nOther commands:")
	} else {
		fmt.Fprintln(w, "\nCommands:")
	}
	for _, sc := range other {
		if sc.IsAvailableCommand() {
			writeCmd(sc)
		}
	}
}

func (p *printer) writeFlags(w io.Writer, c *cobra.Command) {
	fs := pflag.NewFlagSet(c.Name(), pflag.ContinueOnError)
	fs.AddFlagSet(c.NonInheritedFlags())
	fs.AddFlagSet(c.InheritedFlags())
	if !fs.HasAvailableFlags() {
		return
	}

	hp := flagPrinter{out: w, envPrefix: p.envPrefix}
	for i, s := range p.flags.splitFlagSet(fs) {
		if !s.HasAvailableFlags() {
			continue
		}
		name := "Flags"
		if i < len(p.flags) {
			name = p.flags[i].Name
		}
		fmt.Fprintf(w, "\n%s:\n", name)
		s.VisitAll(func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			// help is not bound to configuration
			if f.Name == "help" {
				flagPrinter{out: w}.print(f)
				return
			}
			hp.print(f)
		})
	}
}
