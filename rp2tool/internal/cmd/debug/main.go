// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debug

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rp2tools/rp2plat/rp2tool/internal/action"
	"github.com/rp2tools/rp2plat/rp2tool/internal/board"
	"github.com/rp2tools/rp2plat/rp2tool/internal/project"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

const Descr = "start the debug server (OpenOCD or J-Link GDB server) for the board"

// defaultTool returns the debug tool used if none was given: the first of
// debug.default_tools, else the first onboard tool, else the only one.
func defaultTool(b *board.Profile) string {
	for _, list := range [][]string{b.Debug.DefaultTools, b.Debug.OnboardTools} {
		for _, t := range list {
			if b.HasDebugTool(t) {
				return t
			}
		}
	}
	if len(b.Debug.Tools) == 1 {
		for t := range b.Debug.Tools {
			return t
		}
	}
	return ""
}

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var cfg project.Config
	cfg.AddFlags(fs)
	tool := fs.String("tool", "", "debug `tool` (default debug.default_tools of the board)")
	speed := fs.String("speed", "", "adapter `speed` in kHz (default debug.speed or 5000)")
	dryRun := fs.Bool("n", false, "print the command without running it")
	fs.Parse(args)
	cfg.Setup()
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}
	b, err := cfg.Board()
	util.FatalErr("", err)
	b, err = b.WithDefaultDebugTools()
	util.FatalErr("", err)
	if *tool == "" {
		if *tool = defaultTool(b); *tool == "" {
			util.Fatal(
				"no default debug tool for board %s, use -tool: %s",
				b.ID, strings.Join(slices.Sorted(maps.Keys(b.Debug.Tools)), " "),
			)
		}
	}
	exe, argv, err := b.DebugServer(*tool, *speed)
	util.FatalErr(cmd, err)
	pkgDir := cfg.OpenOCDDir
	if strings.Contains(strings.ToLower(exe), "jlink") {
		pkgDir = cfg.ToolsDir
	}
	if pkgDir != "" && !filepath.IsAbs(exe) && strings.ContainsRune(exe, '/') {
		exe = filepath.Join(pkgDir, exe)
	}
	for i, a := range argv {
		argv[i] = strings.ReplaceAll(a, "$PACKAGE_DIR", pkgDir)
	}
	a := &action.Exec{Msg: "Starting " + *tool + " debug server", Tool: exe, Args: argv}
	s := action.NewState(nil)
	if *dryRun {
		util.FatalErr("", action.Describe(os.Stdout, []action.Action{a}, s))
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = action.Run(ctx, []action.Action{a}, s)
	var ee *action.ExitError
	if errors.As(err, &ee) {
		stop()
		util.Exit(ee.Code)
	}
	util.FatalErr(cmd, err)
}
