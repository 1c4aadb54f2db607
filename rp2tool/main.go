// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rp2tool implements the build and upload steps of the RP2040/RP2350 boards:
// the flash partition, the linker script, the image conversion, the
// filesystem image and the upload over the supported protocols.
package main

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/rp2tools/rp2plat/rp2tool/internal/cmd/bin"
	"github.com/rp2tools/rp2plat/rp2tool/internal/cmd/buildfs"
	"github.com/rp2tools/rp2plat/rp2tool/internal/cmd/debug"
	"github.com/rp2tools/rp2plat/rp2tool/internal/cmd/load"
	"github.com/rp2tools/rp2plat/rp2tool/internal/cmd/plan"
	"github.com/rp2tools/rp2plat/rp2tool/internal/cmd/probe"
	"github.com/rp2tools/rp2plat/rp2tool/internal/cmd/size"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

type tool struct {
	descr string
	main  func(cmd string, args []string)
}

var tools = map[string]tool{
	"plan":     {plan.DescrPlan, plan.Main},
	"ldscript": {plan.DescrLDScript, plan.Main},
	"size":     {size.Descr, size.Main},
	"buildfs":  {buildfs.Descr, buildfs.Main},
	"bin":      {bin.DescrBin, bin.Main},
	"hex":      {bin.DescrHex, bin.Main},
	"uf2":      {bin.DescrUF2, bin.Main},
	"upload":   {load.Descr, load.Main},
	"debug":    {debug.Descr, debug.Main},
	"probe":    {probe.Descr, probe.Main},
}

func printToolList() {
	names := slices.Sorted(maps.Keys(tools))
	maxLen := 0
	for _, k := range names {
		if maxLen < len(k) {
			maxLen = len(k)
		}
	}
	uw := os.Stderr
	uw.WriteString("Usage:\n  rp2tool COMMAND [ARGUMENTS]\n\n")
	uw.WriteString("Available commands:\n")
	for _, name := range names {
		fmt.Fprintf(uw, "  %-*s  %s\n", maxLen, name, tools[name].descr)
	}
}

func main() {
	// The commands parse their own flag sets. The glog flags are only set
	// here and by the -verbose flag of the commands.
	flag.Set("logtostderr", "true")
	if len(os.Args) < 2 || os.Args[1] == "-h" {
		printToolList()
		return
	}
	tool, ok := tools[os.Args[1]]
	if !ok {
		printToolList()
		os.Exit(1)
	}
	tool.main(os.Args[1], os.Args[2:])
	util.Exit(0)
}
