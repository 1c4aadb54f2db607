// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/juju/errors"

	"github.com/rp2tools/rp2plat/rp2tool/internal/action"
	"github.com/rp2tools/rp2plat/rp2tool/internal/image"
)

type MassStorageParams struct {
	Labels []string // volume labels of the boot ROM drive
	Touch  bool     // reset the board using 1200 bps touch first
}

func (*MassStorageParams) Kind() Kind { return MassStorage }

func massStorage(r *Request, j *Job) error {
	p := &MassStorageParams{
		Labels: r.Board.DiskLabels(),
		Touch:  r.Board.Upload.Use1200bpsTouch,
	}
	j.Params = p
	j.Source = r.source(r.Artifacts.UF2)
	if err := required(j.Protocol, "the image to upload", j.Source); err != nil {
		return err
	}
	if r.Filesystem {
		// The boot ROM accepts only UF2 files.
		fsImage := j.Source
		j.Source = strings.TrimSuffix(fsImage, filepath.Ext(fsImage)) + ".uf2"
		j.Offset, j.HasOffset = r.Layout.FSStart, true
		j.Actions = append(j.Actions, &action.RawToUF2{
			In:     fsImage,
			Out:    j.Source,
			Addr:   j.Offset,
			Family: image.FSFamily(r.Board.Build.MCU),
		})
	}
	if p.Touch {
		j.Actions = append(j.Actions, &action.TouchPort{})
	}
	j.Actions = append(j.Actions,
		&action.DetectDisk{Labels: p.Labels},
		&action.CopyToDisk{Source: j.Source},
	)
	return nil
}

type PicotoolParams struct {
	Tool   string
	Flags  []string
	Touch  bool // use_1200bps_touch
	Wait   bool // wait_for_upload_port
	Reboot bool // reboot the device after the upload
}

func (*PicotoolParams) Kind() Kind { return Picotool }

// Delay between the port lookup and the picotool load, and before the reboot.
const picotoolDelay = 500 * time.Millisecond

func picotool(r *Request, j *Job) error {
	p := &PicotoolParams{
		Touch: r.Board.Upload.Use1200bpsTouch,
		Wait:  r.Board.Upload.WaitForUploadPort,
	}
	j.Params = p
	detect := &action.DetectPort{Touch: p.Touch, Wait: p.Wait}
	if !r.Filesystem {
		p.Tool = r.tool("rp2040load")
		p.Flags = []string{"-v", "-D"}
		j.Source = r.Artifacts.ELF
		if err := required(j.Protocol, "the firmware ELF file", j.Source); err != nil {
			return err
		}
		j.Actions = []action.Action{
			detect,
			&action.Exec{
				Msg:  "Uploading " + j.Source,
				Tool: p.Tool,
				Args: append(p.Flags[:len(p.Flags):len(p.Flags)], j.Source),
			},
		}
		return nil
	}
	p.Tool = r.tool("picotool")
	p.Flags = []string{"load", "--verify"}
	p.Reboot = true
	j.Source = r.Artifacts.FSImage
	if err := required(j.Protocol, "the filesystem image", j.Source); err != nil {
		return err
	}
	j.Offset, j.HasOffset = r.Layout.FSStart, true
	args := append(p.Flags[:len(p.Flags):len(p.Flags)], j.Source, "--offset", hex(j.Offset))
	j.Actions = []action.Action{
		detect,
		&action.Delay{Msg: "Delaying a tiny bit...", D: picotoolDelay},
		&action.Exec{Msg: "Uploading " + j.Source, Tool: p.Tool, Args: args},
		&action.Delay{Msg: "Rebooting device...", D: picotoolDelay},
		&action.Exec{Msg: "Rebooting device...", Tool: p.Tool, Args: []string{"reboot"}},
	}
	return nil
}

type JLinkParams struct {
	Tool      string
	Device    string
	Speed     string
	Interface string // swd or jtag
	Script    string // path to the generated commander script
	Commands  []string
}

func (*JLinkParams) Kind() Kind { return JLink }

const defaultJLinkSpeed = "4000"

func jlink(r *Request, j *Job) error {
	p := &JLinkParams{
		Tool:      "JLinkExe",
		Device:    r.Board.Debug.JLinkDevice,
		Speed:     r.Options.DebugSpeed,
		Interface: "swd",
		Script:    filepath.Join(r.buildDir(), "upload.jlink"),
	}
	j.Params = p
	if err := required(j.Protocol, "debug.jlink_device in the board profile", p.Device); err != nil {
		return err
	}
	if r.goos() == "windows" {
		p.Tool = "JLink.exe"
	}
	if p.Speed == "" {
		p.Speed = defaultJLinkSpeed
	}
	if j.Protocol == "jlink-jtag" {
		p.Interface = "jtag"
	}
	if r.Filesystem {
		j.Source = r.Artifacts.FSImage
		j.Offset = r.Layout.FSStart
	} else {
		j.Source = r.Artifacts.Hex
		if err := required(j.Protocol, "the firmware ELF file", r.Artifacts.ELF); err != nil {
			return err
		}
		if j.Source == "" {
			j.Source = strings.TrimSuffix(r.Artifacts.ELF, filepath.Ext(r.Artifacts.ELF)) + ".hex"
		}
		j.Offset, _ = r.Board.OffsetAddress()
		j.Actions = append(j.Actions, &action.Convert{
			ELF:    r.Artifacts.ELF,
			Out:    j.Source,
			Format: image.Hex,
		})
	}
	if err := required(j.Protocol, "the image to upload", j.Source); err != nil {
		return err
	}
	j.HasOffset = true
	p.Commands = []string{
		"h",
		"loadbin " + j.Source + "," + hex(j.Offset),
		"r",
		"q",
	}
	j.Actions = append(j.Actions,
		&action.WriteFile{Name: p.Script, Data: []byte(strings.Join(p.Commands, "\n"))},
		&action.Exec{
			Msg:  "Uploading " + j.Source,
			Tool: p.Tool,
			Args: []string{
				"-device", p.Device,
				"-speed", p.Speed,
				"-if", p.Interface,
				"-autoconnect", "1",
				"-NoGui", "1",
				"-CommanderScript", p.Script,
			},
		},
	)
	return nil
}

type OpenOCDParams struct {
	Tool    string
	Args    []string
	Address string // empty if the ELF file is programmed
}

func (*OpenOCDParams) Kind() Kind { return OpenOCD }

func openocd(r *Request, j *Job) error {
	p := &OpenOCDParams{Tool: "openocd"}
	j.Params = p
	pkgDir := r.Options.OpenOCDDir
	if pkgDir != "" {
		p.Tool = filepath.Join(pkgDir, "bin", "openocd")
	}
	debug := "-d1"
	if r.Options.Verbose {
		debug = "-d2"
	}
	p.Args = append(p.Args, debug)
	for _, a := range r.Board.Debug.Tools[j.Protocol].Server.Arguments {
		p.Args = append(p.Args, strings.ReplaceAll(a, "$PACKAGE_DIR", pkgDir))
	}
	if s := r.Options.DebugSpeed; s != "" {
		p.Args = append(p.Args, "-c", "adapter speed "+s)
	}
	switch offset, ok := r.Board.OffsetAddress(); {
	case r.Filesystem:
		j.Source = r.Artifacts.FSImage
		j.Offset, j.HasOffset = r.Layout.FSStart, true
	case ok:
		j.Source = r.Artifacts.Bin
		j.Offset, j.HasOffset = offset, true
	default:
		j.Source = r.Artifacts.ELF
	}
	if err := required(j.Protocol, "the image to upload", j.Source); err != nil {
		return err
	}
	program := "program {" + filepath.ToSlash(j.Source) + "}"
	if j.HasOffset {
		p.Address = hex(j.Offset)
		program += " " + p.Address
	}
	p.Args = append(p.Args, "-c", program+" verify reset; shutdown;")
	j.Actions = []action.Action{
		&action.Exec{Msg: "Uploading " + j.Source, Tool: p.Tool, Args: p.Args},
	}
	return nil
}

type OTAParams struct {
	Host   string
	Port   int
	Signed bool   // the signed firmware is uploaded
	Key    string // private signing key, if present
}

func (*OTAParams) Kind() Kind { return OTA }

const (
	defaultOTAPort = 2040
	signingKey     = "private.key"
)

func ota(r *Request, j *Job) error {
	p := &OTAParams{Host: r.Options.UploadPort, Port: r.Options.OTAPort}
	j.Params = p
	if err := required(j.Protocol, "the destination host (upload_port)", p.Host); err != nil {
		return err
	}
	if p.Port == 0 {
		p.Port = defaultOTAPort
	}
	j.Source = r.source(r.Artifacts.Bin)
	if err := required(j.Protocol, "the image to upload", j.Source); err != nil {
		return err
	}
	if !r.Filesystem {
		key := filepath.Join(r.Options.ProjectDir, signingKey)
		if _, err := os.Stat(key); err == nil {
			p.Key, p.Signed = key, true
			signed := j.Source + ".signed"
			j.Actions = append(j.Actions, &action.Exec{
				Msg:  "Signing " + j.Source,
				Tool: "python3",
				Args: []string{
					r.tool("signing.py"),
					"--mode", "sign",
					"--privatekey", key,
					"--bin", j.Source,
					"--out", signed,
				},
			})
			j.Source = signed
		}
	}
	args := []string{r.tool("espota.py"), "-i", p.Host, "-p", strconv.Itoa(p.Port)}
	if r.Filesystem {
		args = append(args, "-s")
	}
	args = append(args, r.Options.UploadFlags...)
	args = append(args, "-f", j.Source)
	j.Actions = append(j.Actions, &action.Exec{
		Msg:  "Uploading " + j.Source,
		Tool: "python3",
		Args: args,
	})
	return nil
}

type CustomParams struct {
	Argv []string
}

func (*CustomParams) Kind() Kind { return Custom }

func custom(r *Request, j *Job) error {
	if err := required(j.Protocol, "the upload command", r.Options.UploadCommand); err != nil {
		return err
	}
	argv, err := shlex.Split(r.Options.UploadCommand)
	if err != nil {
		return errors.Annotate(err, "upload command")
	}
	if len(argv) == 0 {
		return &MissingError{j.Protocol, "the upload command"}
	}
	j.Params = &CustomParams{Argv: argv}
	j.Source = r.source(r.Artifacts.Bin)
	j.Actions = []action.Action{
		&action.Exec{Msg: "Uploading " + j.Source, Tool: argv[0], Args: argv[1:]},
	}
	return nil
}
