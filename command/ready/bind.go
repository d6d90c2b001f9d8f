// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ready

import (
	"github.com/spf13/pflag"
)

func bindConfig(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.APIAddress,
		"api-address", cfg.APIAddress, "<host:port>"+
			"The API server address of the proxy. ")
	fs.DurationVar(&cfg.Timeout,
		"timeout", cfg.Timeout, "<duration>"+
			"The maximum time to wait for the response. ")
}
