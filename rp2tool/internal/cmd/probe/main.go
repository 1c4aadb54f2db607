// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package probe

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rp2tools/rp2plat/rp2tool/internal/picoboot"
	"github.com/rp2tools/rp2plat/rp2tool/internal/project"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

const Descr = "identify the device in BOOTSEL mode and check it against the board"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var cfg project.Config
	cfg.AddFlags(fs)
	busAddr := fs.String("usb", "", "select the USB device by `BUS:ADDR`")
	reboot := fs.Bool("reboot", false, "reboot the device into the application")
	fs.Parse(args)
	cfg.Setup()
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}
	var mcu string
	if cfg.BoardFile != "" {
		b, err := cfg.Board()
		util.FatalErr("", err)
		mcu = b.Build.MCU
	}

	pb, err := picoboot.Connect(*busAddr)
	util.FatalErr("", err)
	err = probe(pb, mcu, *reboot)
	if cerr := pb.Close(); err == nil {
		err = cerr
	}
	util.FatalErr("", err)
}

// checkChip returns an error if the device doesn't match the board MCU.
func checkChip(info picoboot.ROMInfo, mcu string) error {
	if mcu != "" && info.Chip.MCU() != strings.ToLower(mcu) {
		return fmt.Errorf("board expects %s, the device is %s", mcu, info.Chip)
	}
	return nil
}

func probe(pb *picoboot.Conn, mcu string, reboot bool) error {
	if err := pb.SetExclusiveAccess(true); err != nil {
		return err
	}
	info, err := pb.ROMInfo()
	if err != nil {
		return err
	}
	fmt.Printf("%d:%d %s\n", pb.Bus, pb.Addr, info)
	if info.Chip != pb.Chip {
		util.Warn("USB product ID reports %s, boot ROM reports %s", pb.Chip, info.Chip)
	}
	if err := checkChip(info, mcu); err != nil {
		return err
	}
	if reboot {
		return pb.Reboot(100)
	}
	return nil
}
