// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package metrics

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zrb-bund/sealproxy/command/run"
	"github.com/zrb-bund/sealproxy/utils/promutil"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the Prometheus metrics exported by the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := run.Metrics()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, d := range promutil.DescribePrometheusMetrics(r) {
				fmt.Fprintf(w, "%s\t%s\n", d, d.Help)
			}
			return w.Flush()
		},
	}
}
