// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package promutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Desc is a parsed prometheus.Desc.
type Desc struct {
	FqName         string
	Help           string
	ConstLabels    map[string]string
	VariableLabels []string
}

func (d Desc) String() string {
	if len(d.VariableLabels) == 0 {
		return d.FqName
	}
	return d.FqName + "{" + strings.Join(d.VariableLabels, ",") + "}"
}

// DescribePrometheusMetrics returns descriptions of all metrics of the collector sorted by name.
func DescribePrometheusMetrics(c prometheus.Collector) []Desc {
	ch := make(chan *prometheus.Desc, 1)
	go func() {
		c.Describe(ch)
		close(ch)
	}()

	var res []Desc //nolint:prealloc // We don't know the size of the result
	for d := range ch {
		res = append(res, parseDesc(d.String()))
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].FqName < res[j].FqName
	})
	return res
}

func parseDesc(s string) Desc {
	var res Desc
	res.FqName, res.Help = parseDescNameAndHelp(s)
	res.ConstLabels = parseDescConstLabels(s)
	res.VariableLabels = parseDescVariableLabels(s)
	return res
}

func parseDescNameAndHelp(s string) (name, help string) {
	fmt.Sscanf(s, "Desc{fqName: %q, help: %q", &name, &help) //nolint:errcheck // partial results are fine
	return
}

// section returns the text between pfx and the following sfx.
func section(s, pfx, sfx string) (string, bool) {
	start := strings.Index(s, pfx)
	if start < 0 {
		return "", false
	}
	s = s[start+len(pfx):]
	end := strings.Index(s, sfx)
	if end < 0 {
		return "", false
	}
	return s[:end], true
}

func parseDescConstLabels(s string) map[string]string {
	s, ok := section(s, "constLabels: {", "}")
	if !ok || s == "" {
		return nil
	}

	res := make(map[string]string)
	for _, kv := range strings.Split(s, ",") {
		k, v, _ := strings.Cut(kv, "=")
		if k != "" {
			res[k] = strings.Trim(v, "\"")
		}
	}
	return res
}

func parseDescVariableLabels(s string) []string {
	if v, ok := section(s, "variableLabels: [", "]"); ok && v != "" {
		return strings.Fields(v)
	}
	if v, ok := section(s, "variableLabels: {", "}"); ok && v != "" {
		return strings.Split(v, ",")
	}
	return nil
}
