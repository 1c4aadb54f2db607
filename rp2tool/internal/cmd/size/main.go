// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package size

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rp2tools/rp2plat/rp2tool/internal/image"
	"github.com/rp2tools/rp2plat/rp2tool/internal/project"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

const Descr = "check that the program fits in the flash left by the partition"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] [ELF]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var cfg project.Config
	cfg.AddFlags(fs)
	fs.Parse(args)
	cfg.Setup()
	if fs.NArg() > 1 {
		fs.Usage()
		os.Exit(1)
	}
	b, _, err := cfg.Load()
	util.FatalErr("", err)
	elf := fs.Arg(0)
	if elf == "" {
		elf = cfg.Path(".elf")
	}
	maxSize := b.Upload.MaximumSize
	prog, data, err := image.CheckSize(elf, maxSize)
	var se *image.SizeError
	if err != nil && !errors.As(err, &se) {
		util.FatalErr(elf, err)
	}
	fmt.Printf(
		"Flash: %d bytes of %d (%.1f%%)\nRAM:   %d bytes\n",
		prog, maxSize, 100*float64(prog)/float64(maxSize), data,
	)
	util.FatalErr(elf, err)
}
