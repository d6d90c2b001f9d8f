// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package gencert

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zrb-bund/sealproxy"
	"github.com/zrb-bund/sealproxy/bind"
	"github.com/zrb-bund/sealproxy/utils/certutil"
)

type command struct {
	certFile string
	keyFile  string
	hosts    []string
	validFor time.Duration
	rsa      bool
	force    bool
}

func (c *command) runE(cmd *cobra.Command, _ []string) error {
	var sc *certutil.SelfSignedCert
	if c.rsa {
		sc = certutil.RSASelfSignedCert(c.hosts...)
	} else {
		sc = certutil.ECDSASelfSignedCert(c.hosts...)
	}
	sc.ValidFor = c.validFor

	cert, err := sc.Gen()
	if err != nil {
		return fmt.Errorf("generate certificate: %w", err)
	}

	if err := certutil.WriteFiles(cert, c.certFile, c.keyFile, c.force); err != nil {
		if errors.Is(err, certutil.ErrExists) {
			return fmt.Errorf("%w, use --force to overwrite", err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "certificate written to %s\nprivate key written to %s\n", c.certFile, c.keyFile)
	return nil
}

func Command() *cobra.Command {
	def := sealproxy.DefaultProxyConfig()
	c := command{
		certFile: def.CertFile,
		keyFile:  def.KeyFile,
		hosts:    []string{"localhost", "127.0.0.1", "::1"},
		validFor: 365 * 24 * time.Hour,
	}

	cmd := &cobra.Command{
		Use:     "gen-cert [--host <host>]... [--force]",
		Short:   "Generate a self-signed TLS certificate for the proxy",
		Long:    long,
		Example: example,
		RunE:    c.runE,
	}

	fs := cmd.Flags()
	fs.StringVar(&c.certFile, "tls-cert-file", c.certFile, "<path>"+
		"Path to write the certificate to. ")
	fs.StringVar(&c.keyFile, "tls-key-file", c.keyFile, "<path>"+
		"Path to write the private key to. ")
	fs.StringSliceVar(&c.hosts, "host", c.hosts, "<host>"+
		"Host name or IP address the certificate is valid for. "+
		"The flag can be specified multiple times. ")
	fs.DurationVar(&c.validFor, "valid-for", c.validFor, "<duration>"+
		"Certificate validity period. ")
	fs.BoolVar(&c.rsa, "rsa", c.rsa, "Generate an RSA 2048 key instead of ECDSA P-256. ")
	fs.BoolVar(&c.force, "force", c.force, "Overwrite existing files. ")
	bind.AutoMarkFlagFilename(cmd)

	return cmd
}

const long = `The certificate and key are written in PEM format to the paths the run command reads by default.
Self-signed certificates are meant for local use, clients must trust the certificate explicitly.
`

const example = `  # Generate a certificate for localhost
  sealproxy gen-cert

  # Generate a certificate for a LAN address
  sealproxy gen-cert --host 192.168.1.10 --host ollama.lan --force
`
