// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/mmatczuk/anyflag"
	"github.com/spf13/pflag"
	"github.com/zrb-bund/sealproxy"
	"github.com/zrb-bund/sealproxy/httplog"
	"github.com/zrb-bund/sealproxy/log"
)

func LogConfig(fs *pflag.FlagSet, cfg *log.Config) {
	fs.Var(newFileFlag(&cfg.File, sealproxy.OpenFileParser(os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600, 0o700)),
		"log-file", "<path>"+
			"Path to the log file, if empty, logs to stdout. "+
			"The file is reopened on SIGHUP to support log rotation. ")

	logLevel := []log.Level{
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
		log.DebugLevel,
	}
	fs.Var(anyflag.NewValue[log.Level](cfg.Level, &cfg.Level, anyflag.EnumParser[log.Level](logLevel...)),
		"log-level", "<error|warn|info|debug>"+
			"Log level. ")

	logFormat := []log.Format{
		log.TextFormat,
		log.JSONFormat,
	}
	fs.Var(anyflag.NewValue[log.Format](cfg.Format, &cfg.Format, anyflag.EnumParser[log.Format](logFormat...)),
		"log-format", "<text|json>"+
			"Log format. ")
}

// HTTPLogConfig binds the --log-http flag to the named modes.
// A value without a name sets the mode of all servers not named explicitly.
func HTTPLogConfig(fs *pflag.FlagSet, cfg []NamedParam[httplog.Mode]) {
	names := httplogExtractNames(cfg)

	parse := func(val string) (NamedParam[httplog.Mode], error) {
		name, mode, ok := strings.Cut(val, ":")
		if !ok {
			name, mode = "", val
		}
		if name != "" && !slices.Contains(names, name) {
			return NamedParam[httplog.Mode]{}, fmt.Errorf("unknown name %q, supported names are: %s", name, strings.Join(names, ", "))
		}
		m, err := httplog.ParseMode(mode)
		if err != nil {
			return NamedParam[httplog.Mode]{}, err
		}
		return NamedParam[httplog.Mode]{Name: name, Param: &m}, nil
	}

	var values []NamedParam[httplog.Mode]
	f := httplogFlag{
		SliceValue: anyflag.NewSliceValue[NamedParam[httplog.Mode]](nil, &values, parse),
		update: func() {
			httplogUpdate(cfg, values)
		},
	}

	fs.Var(f, "log-http", "<["+strings.Join(names, "|")+":]none|short-url|url|errors>"+
		"HTTP request logging mode. "+
		"The mode can be set per server by prefixing it with the server name, "+
		"a mode without a name applies to all servers not named explicitly. "+
		"By default, only requests that failed or got a status code of 500 or above are logged. "+
		"The --debug flag sets the proxy mode to url. ")
}

type httplogFlag struct {
	*anyflag.SliceValue[NamedParam[httplog.Mode]]
	update func()
}

func (f httplogFlag) Set(val string) error {
	if err := f.SliceValue.Set(val); err != nil {
		return err
	}
	f.update()
	return nil
}

func (f httplogFlag) Replace(vals []string) error {
	if err := f.SliceValue.Replace(vals); err != nil {
		return err
	}
	f.update()
	return nil
}

func httplogUpdate(dst, src []NamedParam[httplog.Mode]) {
	changed := make([]bool, len(dst))

	// Update dst with src values.
	for i := range dst {
		for j := range src {
			if dst[i].Name == src[j].Name {
				*dst[i].Param = *src[j].Param
				changed[i] = true
			}
		}
	}

	// The last unnamed value wins.
	defaultMode := httplog.DefaultMode
	for i := len(src) - 1; i >= 0; i-- {
		if src[i].Name == "" {
			defaultMode = *src[i].Param
			break
		}
	}

	for i := range dst {
		if !changed[i] {
			*dst[i].Param = defaultMode
		}
	}
}

func httplogExtractNames(cfg []NamedParam[httplog.Mode]) []string {
	names := make([]string, 0, len(cfg))
	for _, c := range cfg {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}
