// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package load

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/google/shlex"

	"github.com/rp2tools/rp2plat/rp2tool/internal/action"
	"github.com/rp2tools/rp2plat/rp2tool/internal/image"
	"github.com/rp2tools/rp2plat/rp2tool/internal/project"
	"github.com/rp2tools/rp2plat/rp2tool/internal/upload"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

const Descr = "upload the firmware or the filesystem image onto the board"

func Main(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS]\nOptions:\n", cmd)
		fs.PrintDefaults()
	}
	var cfg project.Config
	cfg.AddFlags(fs)
	protocol := fs.String(
		"protocol", "",
		"upload `protocol` (default upload.protocol of the board):\n"+
			"mbed:      copy UF2 onto the boot ROM mass storage device\n"+
			"picotool:  USB bootloader\n"+
			"jlink:     SEGGER J-Link (also jlink-jtag)\n"+
			"espota:    network update\n"+
			"custom:    the command given by -command\n"+
			"any debug tool of the board (cmsis-dap, raspberrypi-swd, ...): OpenOCD",
	)
	filesystem := fs.Bool("fs", false, "upload the filesystem image instead of the firmware")
	port := fs.String("port", "", "serial `port`, or the destination host for espota")
	command := fs.String("command", "", "upload `command` of the custom protocol")
	uflags := fs.String("flags", "", "additional `flags` passed to the upload tool")
	otaPort := fs.Int("ota-port", 0, "destination `port` for espota (default 2040)")
	speed := fs.String("speed", "", "debug adapter `speed` in kHz")
	dryRun := fs.Bool("n", false, "print the actions without running them")
	noCheck := fs.Bool("no-size-check", false, "do not check the program size before upload")
	fs.Parse(args)
	cfg.Setup()
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}
	b, l, err := cfg.Load()
	util.FatalErr("", err)
	b, err = b.WithDefaultDebugTools()
	util.FatalErr("", err)
	flags, err := shlex.Split(*uflags)
	util.FatalErr("-flags", err)

	req := upload.Request{
		Protocol:   *protocol,
		Filesystem: *filesystem,
		Board:      b,
		Layout:     l,
		Artifacts:  cfg.Artifacts(),
		Options: upload.Options{
			BuildDir:      cfg.Build(),
			ProjectDir:    cfg.ProjectDir,
			ToolsDir:      cfg.ToolsDir,
			OpenOCDDir:    cfg.OpenOCDDir,
			UploadPort:    *port,
			UploadCommand: *command,
			UploadFlags:   flags,
			OTAPort:       *otaPort,
			DebugSpeed:    *speed,
			Verbose:       cfg.Verbose,
		},
	}
	job, err := upload.Dispatch(req)
	util.FatalErr(cmd, err)
	glog.V(1).Infof("upload: %s (%s) %s", job.Protocol, job.Kind, job.Source)
	s := action.NewState(job.Vars())
	if *dryRun {
		util.FatalErr("", action.Describe(os.Stdout, job.Actions, s))
		return
	}
	if !*filesystem && !*noCheck && project.Exists(req.Artifacts.ELF) {
		_, _, err := image.CheckSize(req.Artifacts.ELF, b.Upload.MaximumSize)
		util.FatalErr(req.Artifacts.ELF, err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = action.Run(ctx, job.Actions, s)
	var ee *action.ExitError
	if errors.As(err, &ee) {
		glog.Error(err)
		stop()
		util.Exit(ee.Code)
	}
	util.FatalErr(cmd, err)
}
