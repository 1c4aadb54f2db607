// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bin

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/rp2tools/rp2plat/rp2tool/internal/image"
	"github.com/rp2tools/rp2plat/rp2tool/internal/project"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

const (
	DescrBin = "convert an ELF file to a binary image"
	DescrHex = "convert an ELF file to the Intel HEX format"
	DescrUF2 = "convert an ELF file to the UF2 format"
)

var formats = map[string]image.Format{
	"bin": image.Bin,
	"hex": image.Hex,
	"uf2": image.UF2,
}

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\n  %s [OPTIONS] [ELF [%s]]\nOptions:\n",
			cmd, strings.ToUpper(cmd),
		)
		fs.PrintDefaults()
	}
	var cfg project.Config
	cfg.AddFlags(fs)
	var family string
	if cmd == "uf2" {
		fs.StringVar(
			&family, "family", "",
			"UF2 family `ID` (32-bit number) or a known family name (default by\n"+
				"the board MCU):\n"+
				strings.Join(slices.Sorted(maps.Keys(image.FamilyNames)), "\n"),
		)
	}
	fs.Parse(args)
	cfg.Setup()
	if fs.NArg() > 2 {
		fs.Usage()
		os.Exit(1)
	}
	format, ok := formats[cmd]
	if !ok {
		util.Fatal("unknown format: %s", cmd)
	}
	elf := fs.Arg(0)
	if elf == "" {
		elf = cfg.Path(".elf")
	}
	out := fs.Arg(1)
	if out == "" {
		out = strings.TrimSuffix(elf, ".elf") + "." + cmd
	}
	var familyID uint32
	if format == image.UF2 {
		var err error
		switch {
		case family != "":
			familyID, err = image.ParseFamily(family)
			util.FatalErr("", err)
		case cfg.BoardFile != "":
			b, err := cfg.Board()
			util.FatalErr("", err)
			familyID = image.Family(b.Build.MCU)
		default:
			util.Warn("uf2: neither -family nor -board given, assuming rp2040")
			familyID = image.FamilyRP2040
		}
	}
	util.FatalErr(cmd, image.Convert(elf, out, format, familyID))
}
