// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sealproxy

import (
	"github.com/spf13/cobra"
	"github.com/zrb-bund/sealproxy/bind"
	"github.com/zrb-bund/sealproxy/command/gencert"
	"github.com/zrb-bund/sealproxy/command/metrics"
	"github.com/zrb-bund/sealproxy/command/ready"
	"github.com/zrb-bund/sealproxy/command/run"
	"github.com/zrb-bund/sealproxy/command/version"
	"github.com/zrb-bund/sealproxy/utils/cobrautil"
	"github.com/zrb-bund/sealproxy/utils/cobrautil/templates"
)

const (
	EnvPrefix          = "SEALPROXY"
	ConfigFileFlagName = "config-file"
)

// LegacyEnv maps flags to the environment variables used by existing deployments.
// They take effect only if the SEALPROXY_ prefixed variable is not set.
func LegacyEnv() map[string][]string {
	return map[string][]string{
		"port":          {"PORT"},
		"listen-host":   {"LISTEN_HOST"},
		"upstream-host": {"OLLAMA_HOST"},
		"upstream-port": {"OLLAMA_PORT"},
		"debug":         {"DEBUG"},
		"username":      {"PROXY_USERNAME"},
		"password":      {"PROXY_PASSWORD"},
		"e2e-password":  {"E2E_PASSWORD"},
		"e2e-required":  {"E2E_REQUIRED"},
	}
}

func CommandGroups() templates.CommandGroups {
	return templates.CommandGroups{
		{
			Message: "Commands:",
			Commands: []*cobra.Command{
				run.Command(),
				gencert.Command(),
				ready.Command(),
			},
		},
	}
}

func FlagGroups() templates.FlagGroups {
	return templates.FlagGroups{
		{
			Name: "Server options",
			Prefix: []string{
				"",
				"tls",
			},
		},
		{
			Name:   "Upstream options",
			Prefix: []string{"upstream"},
		},
		{
			Name: "Authentication options",
			Prefix: []string{
				"username",
				"password",
			},
		},
		{
			Name:   "End-to-end encryption options",
			Prefix: []string{"e2e"},
		},
		{
			Name: "API server options",
			Prefix: []string{
				"api",
				"prom",
			},
		},
		{
			Name: "Logging options",
			Prefix: []string{
				"log",
				"debug",
			},
		},
		{
			Name: "Options",
			Prefix: []string{
				"config-file",
				"help",
			},
		},
	}
}

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sealproxy",
		Short: "TLS terminating proxy for Ollama with basic authentication and end-to-end encryption",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cobrautil.BindAll(cmd, EnvPrefix, ConfigFileFlagName, cobrautil.WithEnvAliases(LegacyEnv()))
		},
		SilenceUsage: true,
	}
	bind.ConfigFile(cmd.PersistentFlags(), new(string))

	cg := CommandGroups()
	cg.Add(cmd)
	cmd.AddCommand(
		metrics.Command(),
		version.Command(),
	)

	cobrautil.VisitAll(cmd, cobrautil.DefaultLong)
	cobrautil.NoHelpSubcommand(cmd)
	templates.ActsAsRootCommand(cmd, cg, FlagGroups(), EnvPrefix)

	return cmd
}
