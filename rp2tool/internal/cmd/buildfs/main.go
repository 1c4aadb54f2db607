// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buildfs

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rp2tools/rp2plat/rp2tool/internal/action"
	"github.com/rp2tools/rp2plat/rp2tool/internal/fsimage"
	"github.com/rp2tools/rp2plat/rp2tool/internal/project"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

const Descr = "build the LittleFS image of the data directory"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] [IMAGE]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var cfg project.Config
	cfg.AddFlags(fs)
	data := fs.String("data", "", "data `dir`ectory (default PROJECT/data)")
	tool := fs.String("mklittlefs", "", "path to the mklittlefs `tool` (default TOOLS/mklittlefs)")
	fs.Parse(args)
	cfg.Setup()
	if fs.NArg() > 1 {
		fs.Usage()
		os.Exit(1)
	}
	_, l, err := cfg.Load()
	util.FatalErr("", err)
	if *data == "" {
		*data = filepath.Join(cfg.ProjectDir, "data")
	}
	if *tool == "" {
		*tool = cfg.Tool(fsimage.DefaultTool)
	}
	out := fs.Arg(0)
	if out == "" {
		out = cfg.Artifacts().FSImage
	}
	if fi, err := os.Stat(*data); err != nil || !fi.IsDir() {
		util.Fatal("%s: data directory not found", *data)
	}
	a, err := fsimage.Command(*tool, *data, out, l)
	util.FatalErr(cmd, err)
	util.FatalErr(cmd, os.MkdirAll(filepath.Dir(out), 0o755))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = action.Run(ctx, []action.Action{a}, action.NewState(nil))
	var ee *action.ExitError
	if errors.As(err, &ee) {
		util.Warn("%v", err)
		stop()
		util.Exit(ee.Code)
	}
	util.FatalErr(cmd, err)
}
