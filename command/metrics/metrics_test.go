// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestMetricsCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := Command()
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"sealproxy_auth_failures_total",
		"sealproxy_e2e_decrypt_failures_total",
		"sealproxy_upstream_errors_total{kind}",
		"sealproxy_http_requests_total{code,method,mode}",
		"sealproxy_listener_accepted_total",
		"sealproxy_dialer_cx_active{host}",
		"sealproxy_errors_total{name}",
		"sealproxy_version",
	} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("missing %s in:\n%s", name, buf.String())
		}
	}
}
