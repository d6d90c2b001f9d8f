// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package run

import (
	"fmt"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/zrb-bund/sealproxy"
	"github.com/zrb-bund/sealproxy/bind"
	"github.com/zrb-bund/sealproxy/httplog"
	"github.com/zrb-bund/sealproxy/internal/version"
	"github.com/zrb-bund/sealproxy/log"
	"github.com/zrb-bund/sealproxy/log/slog"
	"github.com/zrb-bund/sealproxy/middleware"
	"github.com/zrb-bund/sealproxy/runctx"
	"github.com/zrb-bund/sealproxy/utils/cobrautil"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
)

type command struct {
	promReg     *prometheus.Registry
	proxyConfig *sealproxy.ProxyConfig
	apiConfig   *sealproxy.HTTPServerConfig
	apiLogMode  httplog.Mode
	logConfig   *log.Config

	goleak bool
}

func (c *command) runE(cmd *cobra.Command, _ []string) (cmdErr error) {
	if f := c.logConfig.File; f != nil {
		defer f.Close()
	}
	if c.proxyConfig.Debug {
		c.logConfig.Level = log.DebugLevel
	}

	onError, err := c.registerErrorsMetric()
	if err != nil {
		return fmt.Errorf("register errors metric: %w", err)
	}
	logger := slog.New(c.logConfig, slog.WithOnError(onError))

	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close logger: %s\n", err)
		}
	}()

	defer func() {
		if cmdErr != nil {
			logger.Error("fatal error exiting", "error", cmdErr)
			cmd.SilenceErrors = true
		}
	}()

	logger.Info("sealproxy starting", "version", version.Version, "commit", version.Commit)
	logger.Debug("resource limits", "gomaxprocs", runtime.GOMAXPROCS(0), "gomemlimit", os.Getenv("GOMEMLIMIT"))

	config, err := c.describeConfig(cmd)
	if err != nil {
		return err
	}
	if changed, err := (cobrautil.FlagsDescriber{
		Format:          cobrautil.Plain,
		ShowChangedOnly: true,
	}).DescribeFlags(cmd.Flags()); err != nil {
		return err
	} else if changed != "" {
		logger.Info("configuration\n" + changed)
	} else {
		logger.Info("using default configuration")
	}
	logger.Debug("all configuration\n" + config[sealproxy.ConfigPlain])

	g := runctx.NewGroup()

	p, err := sealproxy.NewProxyServer(c.proxyConfig, logger.Named("proxy"))
	if err != nil {
		return err
	}
	g.Add(p.Run)

	if c.apiConfig.Addr != "" {
		if err := c.registerProcMetrics(); err != nil {
			return fmt.Errorf("register process metrics: %w", err)
		}
		if err := c.registerVersionMetric(); err != nil {
			return fmt.Errorf("register version metric: %w", err)
		}

		al := logger.Named("api")
		h := middleware.RequestID(
			httplog.NewLogger(al.Info, c.apiLogMode).LogFunc().Wrap(
				sealproxy.NewAPIHandler(c.promReg, p, config)))
		a, err := sealproxy.NewHTTPServer(c.apiConfig, h, al)
		if err != nil {
			return err
		}
		g.Add(a.Run)
	}

	if c.goleak {
		defer func() {
			if err := goleak.Find(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "goleak: %s", err)
				os.Exit(1)
			}
		}()
	}

	return g.Run()
}

// describeConfig renders the flags for /configz, secrets are redacted by the flag values.
func (c *command) describeConfig(cmd *cobra.Command) (map[sealproxy.ConfigFormat]string, error) {
	formats := map[sealproxy.ConfigFormat]cobrautil.DescribeFormat{
		sealproxy.ConfigPlain: cobrautil.Plain,
		sealproxy.ConfigJSON:  cobrautil.JSON,
		sealproxy.ConfigYAML:  cobrautil.YAML,
	}

	res := make(map[sealproxy.ConfigFormat]string, len(formats))
	for cf, df := range formats {
		s, err := cobrautil.FlagsDescriber{
			Format: df,
		}.DescribeFlags(cmd.Flags())
		if err != nil {
			return nil, fmt.Errorf("describe configuration as %s: %w", df, err)
		}
		res[cf] = s
	}
	return res, nil
}

func (c *command) registerErrorsMetric() (func(name string), error) {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.proxyConfig.PromNamespace,
		Name:      "errors_total",
		Help:      "Number of errors logged",
	}, []string{"name"})

	if err := c.promReg.Register(m); err != nil {
		return nil, err
	}

	return func(name string) {
		m.WithLabelValues(name).Inc()
	}, nil
}

func (c *command) registerProcMetrics() error {
	return multierr.Combine(
		// Note that ProcessCollector is only available in Linux and Windows.
		c.promReg.Register(collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{Namespace: c.proxyConfig.PromNamespace})),
		c.promReg.Register(collectors.NewGoCollector()),
	)
}

func (c *command) registerVersionMetric() error {
	return c.promReg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.proxyConfig.PromNamespace,
		Name:      "version",
		Help:      "Sealproxy version, value is always 1",
		ConstLabels: prometheus.Labels{
			"version": version.Version,
			"commit":  version.Commit,
			"time":    version.Time,
		},
	}, func() float64 {
		return 1
	}))
}

func Command() *cobra.Command {
	c := makeCommand()

	cmd := &cobra.Command{
		Use:     "run [--port <port>] [--upstream-host <host>] [--password <password>] [--e2e-password <password>]",
		Short:   "Start the TLS proxy in front of an Ollama server",
		Long:    long,
		Example: example,
		RunE:    c.runE,
	}

	fs := cmd.Flags()
	bind.ProxyConfig(fs, c.proxyConfig)
	bind.APIAddress(fs, &c.apiConfig.Addr)
	bind.PromNamespace(fs, &c.proxyConfig.PromNamespace)
	bind.LogConfig(fs, c.logConfig)
	bind.HTTPLogConfig(fs, []bind.NamedParam[httplog.Mode]{
		{Name: "api", Param: &c.apiLogMode},
		{Name: "proxy", Param: &c.proxyConfig.LogHTTPMode},
	})
	bind.AutoMarkFlagFilename(cmd)

	fs.BoolVar(&c.goleak, "goleak", false, "enable goleak")
	bind.MarkFlagHidden(cmd, "goleak")

	return cmd
}

// Metrics returns the registry with all metrics registered by the run command.
func Metrics() (*prometheus.Registry, error) {
	c := makeCommand()

	if _, err := c.registerErrorsMetric(); err != nil {
		return nil, err
	}
	if err := c.registerProcMetrics(); err != nil {
		return nil, err
	}
	if err := c.registerVersionMetric(); err != nil {
		return nil, err
	}
	sealproxy.RegisterMetrics(c.promReg, c.proxyConfig.PromNamespace)

	return c.promReg, nil
}

func makeCommand() command {
	c := command{
		promReg:     prometheus.NewRegistry(),
		proxyConfig: sealproxy.DefaultProxyConfig(),
		apiConfig:   sealproxy.DefaultAPIServerConfig(),
		apiLogMode:  httplog.DefaultMode,
		logConfig:   log.DefaultConfig(),
	}
	c.proxyConfig.PromRegistry = c.promReg

	return c
}

const long = `The proxy terminates TLS and forwards requests to an Ollama server.
Requests may be protected with basic authentication.
With an E2E password, requests marked with the X-E2E-Encrypted header are decrypted before forwarding and their responses are encrypted.
The proxy does not start without a TLS certificate and key, use the gen-cert command to create a self-signed pair for local use.
`

const example = `  # Proxy a local Ollama server on port 11435
  sealproxy run --tls-cert-file certs/fullchain.pem --tls-key-file certs/key.pem

  # Protect the proxy with basic authentication and require end-to-end encryption
  sealproxy run --password secret --e2e-password e2e-secret --e2e-required

  # Use legacy environment variables
  OLLAMA_HOST=10.0.0.5 PROXY_PASSWORD=secret sealproxy run
`
