// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package plan

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rp2tools/rp2plat/rp2tool/internal/ldscript"
	"github.com/rp2tools/rp2plat/rp2tool/internal/project"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

const (
	DescrPlan     = "print the flash partition of the board"
	DescrLDScript = "generate the linker script fragment with the flash partition"
)

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		arg := ""
		if cmd == "ldscript" {
			arg = " [OUT]"
		}
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS]%s\nOptions:\n", cmd, arg)
		fs.PrintDefaults()
	}
	var cfg project.Config
	cfg.AddFlags(fs)
	var env bool
	if cmd == "plan" {
		fs.BoolVar(&env, "env", false, "print the layout as KEY=VALUE lines")
	}
	fs.Parse(args)
	cfg.Setup()
	if fs.NArg() > 1 || cmd == "plan" && fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}
	b, l, err := cfg.Load()
	util.FatalErr("", err)

	var w io.Writer = os.Stdout
	if out := fs.Arg(0); out != "" {
		f, err := os.Create(out)
		util.FatalErr("", err)
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	switch {
	case cmd == "ldscript":
		err = ldscript.Write(bw, l)
	case env:
		_, err = bw.WriteString(strings.Join(project.Env(b, l), "\n") + "\n")
	default:
		err = l.Summary(bw)
	}
	util.FatalErr(cmd, err)
	util.FatalErr(cmd, bw.Flush())
}
