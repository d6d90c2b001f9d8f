// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bind binds configuration structs to command line flags.
package bind

import (
	"strings"

	"github.com/mmatczuk/anyflag"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zrb-bund/sealproxy"
)

func ConfigFile(fs *pflag.FlagSet, configFile *string) {
	fs.StringVarP(configFile,
		"config-file", "c", *configFile, "<path>"+
			"Configuration file to load options from. "+
			"The supported formats are: JSON, YAML, TOML, HCL, and Java properties. "+
			"The file format is determined by the file extension, if not specified the default format is YAML. "+
			"The following precedence order of configuration sources is used: command flags, environment variables, config file, default values. ")
}

// ProxyConfig binds all proxy options including the TLS server options.
func ProxyConfig(fs *pflag.FlagSet, cfg *sealproxy.ProxyConfig) {
	ListenConfig(fs, cfg)
	HTTPServerConfig(fs, &cfg.HTTPServerConfig, sealproxy.TLSSchemes...)
	UpstreamConfig(fs, cfg)
	AuthConfig(fs, cfg)
	E2EConfig(fs, cfg)

	fs.BoolVar(&cfg.Debug,
		"debug", cfg.Debug,
		"Enable debug logging, this sets the log level to debug and logs the URL of every request. ")
}

func ListenConfig(fs *pflag.FlagSet, cfg *sealproxy.ProxyConfig) {
	fs.StringVar(&cfg.ListenHost,
		"listen-host", cfg.ListenHost, "<host>"+
			"The host or IP address the proxy listens on. ")

	fs.Var(anyflag.NewValue[int](cfg.Port, &cfg.Port, sealproxy.ParsePort),
		"port", "<port>"+
			"The port the proxy listens on. ")
}

func UpstreamConfig(fs *pflag.FlagSet, cfg *sealproxy.ProxyConfig) {
	fs.StringVar(&cfg.UpstreamHost,
		"upstream-host", cfg.UpstreamHost, "<host>"+
			"The Ollama server host. ")

	fs.Var(anyflag.NewValue[int](cfg.UpstreamPort, &cfg.UpstreamPort, sealproxy.ParsePort),
		"upstream-port", "<port>"+
			"The Ollama server port. ")

	fs.DurationVar(&cfg.UpstreamTimeout,
		"upstream-timeout", cfg.UpstreamTimeout, "<duration>"+
			"The maximum time the upstream connection may stay idle while a request is in progress. "+
			"Streaming responses are not limited as long as data keeps flowing. ")
}

func AuthConfig(fs *pflag.FlagSet, cfg *sealproxy.ProxyConfig) {
	fs.StringVar(&cfg.Username,
		"username", cfg.Username, "<username>"+
			"Basic authentication username. ")

	fs.Var(SecretFlag(&cfg.Password),
		"password", "<password>"+
			"Basic authentication password, if empty, authentication is disabled. ")
}

func E2EConfig(fs *pflag.FlagSet, cfg *sealproxy.ProxyConfig) {
	fs.Var(SecretFlag(&cfg.E2EPassword),
		"e2e-password", "<password>"+
			"Password used to derive end-to-end encryption keys, if empty, end-to-end encryption is disabled. ")

	fs.BoolVar(&cfg.E2ERequired,
		"e2e-required", cfg.E2ERequired,
		"Reject requests that are not end-to-end encrypted. "+
			"Requires --e2e-password. ")
}

func HTTPServerConfig(fs *pflag.FlagSet, cfg *sealproxy.HTTPServerConfig, schemes ...sealproxy.Scheme) {
	if len(schemes) > 1 {
		names := make([]string, len(schemes))
		for i := range schemes {
			names[i] = string(schemes[i])
		}

		fs.Var(anyflag.NewValue[sealproxy.Scheme](cfg.Protocol, &cfg.Protocol,
			anyflag.EnumParser[sealproxy.Scheme](schemes...)),
			"protocol", "<"+strings.Join(names, "|")+">"+
				"The server protocol. "+
				"The h2 protocol enables HTTP/2 with fallback to HTTP/1.1. ")
	}

	fs.StringVar(&cfg.CertFile,
		"tls-cert-file", cfg.CertFile, "<path>"+
			"TLS certificate chain in PEM format. "+
			"The server does not start if the file is missing. ")

	fs.StringVar(&cfg.KeyFile,
		"tls-key-file", cfg.KeyFile, "<path>"+
			"TLS private key in PEM format. "+
			"The server does not start if the file is missing. ")

	fs.BoolVar(&cfg.WatchCert,
		"tls-watch", cfg.WatchCert,
		"Reload the TLS certificate and key when the files change. ")

	fs.DurationVar(&cfg.ReadHeaderTimeout,
		"read-header-timeout", cfg.ReadHeaderTimeout, "<duration>"+
			"The amount of time allowed to read request headers. ")

	fs.DurationVar(&cfg.ShutdownTimeout,
		"shutdown-timeout", cfg.ShutdownTimeout, "<duration>"+
			"The maximum amount of time to wait for in-flight requests on shutdown. ")
}

func APIAddress(fs *pflag.FlagSet, addr *string) {
	fs.StringVar(addr,
		"api-address", *addr, "<host:port>"+
			"The API server address, it serves metrics, health checks and the configuration. "+
			"If empty, the API server is disabled. ")
}

func PromNamespace(fs *pflag.FlagSet, ns *string) {
	fs.StringVar(ns,
		"prom-namespace", *ns, "<namespace>"+
			"Prometheus namespace of the exported metrics. ")
}

func MarkFlagHidden(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.Flags().MarkHidden(name); err != nil {
			panic(err)
		}
	}
}

func AutoMarkFlagFilename(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.HasPrefix(f.Usage, "<path") ||
			strings.HasSuffix(f.Name, "-file") {
			MarkFlagFilename(cmd, f.Name)
		}
	})
}

func MarkFlagFilename(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagFilename(name); err != nil {
			panic(err)
		}
	}
}
