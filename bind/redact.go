// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"github.com/mmatczuk/anyflag"
	"github.com/spf13/pflag"
	"github.com/zrb-bund/sealproxy"
)

func parseString(val string) (string, error) {
	return val, nil
}

// SecretFlag is a string flag value that is rendered as xxxxx when set.
func SecretFlag(p *string) pflag.Value {
	return anyflag.NewValueWithRedact[string](*p, p, parseString, sealproxy.RedactSecret)
}
