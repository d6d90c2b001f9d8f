// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package promutil helps to inspect Prometheus metrics in tests and tools.
package promutil

import (
	"bytes"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// WithPrefix selects metric families by name prefix.
func WithPrefix(prefix string) func(*dto.MetricFamily) bool {
	return func(mf *dto.MetricFamily) bool {
		return strings.HasPrefix(mf.GetName(), prefix)
	}
}

// DumpPrometheusMetrics renders the gathered metrics in the text exposition format.
func DumpPrometheusMetrics(g prometheus.Gatherer, filters ...func(*dto.MetricFamily) bool) (string, error) {
	got, err := g.Gather()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range got {
		if !match(mf, filters) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}

	return buf.String(), nil
}

func match(mf *dto.MetricFamily, filters []func(*dto.MetricFamily) bool) bool {
	for _, f := range filters {
		if !f(mf) {
			return false
		}
	}
	return true
}

// ParseMetricFamilies parses the text exposition format, the result can be used with testutil.
func ParseMetricFamilies(r io.Reader) (*Gatherer, error) {
	var parser expfmt.TextParser
	mf, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, err
	}
	return &Gatherer{mf: mf}, nil
}

type Gatherer struct {
	mf map[string]*dto.MetricFamily
}

func (g *Gatherer) Gather() ([]*dto.MetricFamily, error) {
	res := make([]*dto.MetricFamily, 0, len(g.mf))
	for _, mf := range g.mf {
		res = append(res, mf)
	}
	return res, nil
}

// Has reports whether a metric family with the name was parsed.
func (g *Gatherer) Has(name string) bool {
	_, ok := g.mf[name]
	return ok
}
