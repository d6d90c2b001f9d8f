// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package templates

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestSplitFlagSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("port", "", "")
	fs.String("upstream-host", "", "")
	fs.String("upstream-port", "", "")
	fs.String("e2e-password", "", "")
	fs.String("log-level", "", "")

	g := FlagGroups{
		{Name: "Server", Prefix: []string{"port"}},
		{Name: "Upstream", Prefix: []string{"upstream"}},
		{Name: "Upstream port", Prefix: []string{"upstream-port"}},
		{Name: "E2E", Prefix: []string{"e2e"}},
	}

	names := func(fs *pflag.FlagSet) (res []string) {
		fs.VisitAll(func(f *pflag.Flag) {
			res = append(res, f.Name)
		})
		return
	}

	var got [][]string
	for _, s := range g.splitFlagSet(fs) {
		got = append(got, names(s))
	}
	want := [][]string{
		{"port"},
		{"upstream-host"},
		{"upstream-port"},
		{"e2e-password"},
		{"log-level"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected groups (-want +got):\n%s", diff)
	}
}

func TestActsAsRootCommandHelp(t *testing.T) {
	root := &cobra.Command{Use: "sealproxy", Short: "Proxy"}
	run := &cobra.Command{
		Use:   "run",
		Short: "Start the proxy",
		Long:  "Start the proxy.",
		RunE:  func(*cobra.Command, []string) error { return nil },
	}
	run.Flags().String("upstream-host", "127.0.0.1", "<host>Upstream host. ")
	run.Flags().Bool("secret", false, "")
	_ = run.Flags().MarkHidden("secret")

	cg := CommandGroups{{Message: "Commands:", Commands: []*cobra.Command{run}}}
	cg.Add(root)
	ActsAsRootCommand(root, cg, FlagGroups{{Name: "Upstream options", Prefix: []string{"upstream"}}}, "SEALPROXY")

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"run", "--help"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, s := range []string{
		"Start the proxy.",
		"Usage:\n  sealproxy run",
		"Upstream options:",
		"--upstream-host <host> (default '127.0.0.1') (env SEALPROXY_UPSTREAM_HOST):",
		"Upstream host.",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("help output does not contain %q:\n%s", s, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Errorf("hidden flag in help output:\n%s", out)
	}
}

func TestFlagPrinter(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("config-file", "c", "", "<path>Configuration file to load options from.")
	fs.String("log-http", "errors", "<[api|proxy:]none|url|errors>HTTP request logging mode.")
	fs.Int("port", 3001, "Port to listen on.")
	fs.Bool("e2e-required", false, "Reject unencrypted requests.")
	fs.StringSlice("host", nil, "<host>Hosts to include.")

	tests := []struct {
		name string
		want string
	}{
		{"config-file", "-c, --config-file <path> (env SEALPROXY_CONFIG_FILE):\n\tConfiguration file to load options from.\n\n"},
		{"log-http", "    --log-http <[api|proxy:]none|url|errors> (default 'errors') (env SEALPROXY_LOG_HTTP):\n\tHTTP request logging mode.\n\n"},
		{"port", "    --port <int> (default 3001) (env SEALPROXY_PORT):\n\tPort to listen on.\n\n"},
		{"e2e-required", "    --e2e-required (default false) (env SEALPROXY_E2E_REQUIRED):\n\tReject unencrypted requests.\n\n"},
		{"host", "    --host <host> (env SEALPROXY_HOST):\n\tHosts to include.\n\n"},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			flagPrinter{out: &buf, envPrefix: "SEALPROXY"}.print(fs.Lookup(tc.name))
			if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
				t.Errorf("unexpected output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlagPrinterWrapsUsage(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("upstream-host", "", "<host>"+strings.Repeat("word ", 40))

	var buf bytes.Buffer
	flagPrinter{out: &buf}.print(fs.Lookup("upstream-host"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "    --upstream-host <host>:" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines) < 3 {
		t.Fatalf("expected wrapped usage:\n%s", buf.String())
	}
	for _, l := range lines[1:] {
		if !strings.HasPrefix(l, "\t") || len(l) > wrapLimit-usageIndent+1 {
			t.Errorf("bad usage line %q", l)
		}
	}
}
