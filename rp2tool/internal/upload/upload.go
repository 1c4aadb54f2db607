// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package upload turns the selected upload protocol into the ordered list of
// actions that write the firmware or the filesystem image to the board.
package upload

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/rp2tools/rp2plat/rp2tool/internal/action"
	"github.com/rp2tools/rp2plat/rp2tool/internal/board"
	"github.com/rp2tools/rp2plat/rp2tool/internal/partition"
)

// Kind is the upload method selected by the protocol name.
type Kind int

const (
	Unknown     Kind = iota
	MassStorage      // copy UF2 to the boot ROM USB drive (mbed)
	Picotool         // rp2040load/picotool via the USB bootloader
	JLink            // SEGGER J-Link commander script
	OpenOCD          // any protocol from the board debug tools table
	OTA              // network update (espota)
	Custom           // user provided upload command
)

var kindNames = [...]string{
	Unknown:     "unknown",
	MassStorage: "mass-storage",
	Picotool:    "picotool",
	JLink:       "jlink",
	OpenOCD:     "openocd",
	OTA:         "ota",
	Custom:      "custom",
}

func (k Kind) String() string {
	if uint(k) < uint(len(kindNames)) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Select returns the upload method for the protocol. The tests are performed
// in a fixed order and the first match wins.
func Select(protocol string, b *board.Profile) Kind {
	switch {
	case protocol == "mbed":
		return MassStorage
	case protocol == "picotool":
		return Picotool
	case strings.HasPrefix(protocol, "jlink"):
		return JLink
	case b != nil && b.HasDebugTool(protocol):
		return OpenOCD
	case protocol == "espota":
		return OTA
	case protocol == "custom":
		return Custom
	}
	return Unknown
}

// Artifacts are the paths to the build results.
type Artifacts struct {
	ELF     string
	Bin     string
	UF2     string
	Hex     string
	FSImage string
}

// Options are the user provided upload options.
type Options struct {
	BuildDir      string
	ProjectDir    string
	ToolsDir      string // directory of picotool, rp2040load, espota.py
	OpenOCDDir    string // OpenOCD package directory ($PACKAGE_DIR)
	UploadPort    string // serial port, or the host for OTA
	UploadCommand string // the command of the custom protocol
	UploadFlags   []string
	OTAPort       int
	DebugSpeed    string
	Verbose       bool
	GOOS          string // defaults to runtime.GOOS
}

// Request is the complete, immutable input of Dispatch.
type Request struct {
	Protocol   string // empty means the board default
	Filesystem bool   // upload the filesystem image instead of the firmware
	Board      *board.Profile
	Layout     *partition.Layout
	Artifacts  Artifacts
	Options    Options
}

// Job is the result of Dispatch.
type Job struct {
	Kind      Kind
	Protocol  string
	Source    string // the artifact written to the board
	Offset    uint32 // flash address of Source, valid if HasOffset
	HasOffset bool
	Params    Params
	Actions   []action.Action
	vars      map[string]string
}

// Vars returns the variables for action.NewState.
func (j *Job) Vars() map[string]string {
	return j.vars
}

// Params holds the parameters specific to the upload method. Its dynamic type
// is one of *MassStorageParams, *PicotoolParams, *JLinkParams,
// *OpenOCDParams, *OTAParams, *CustomParams.
type Params interface {
	Kind() Kind
}

// MissingError reports a configuration value required by the protocol.
type MissingError struct {
	Protocol string
	Param    string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("upload protocol %s requires %s", e.Protocol, e.Param)
}

var warnf = glog.Warningf

func hex(u uint32) string {
	return "0x" + strconv.FormatUint(uint64(u), 16)
}

func (r *Request) tool(name string) string {
	if r.Options.ToolsDir == "" {
		return name
	}
	return filepath.Join(r.Options.ToolsDir, name)
}

func (r *Request) goos() string {
	if r.Options.GOOS != "" {
		return r.Options.GOOS
	}
	return runtime.GOOS
}

func (r *Request) buildDir() string {
	if r.Options.BuildDir != "" {
		return r.Options.BuildDir
	}
	return "."
}

func required(proto, param, val string) error {
	if val == "" {
		return &MissingError{proto, param}
	}
	return nil
}

// Dispatch selects the upload method for req.Protocol and computes its
// parameters and actions. Nothing is executed. An unknown protocol is logged
// and results in a Job without actions.
func Dispatch(req Request) (*Job, error) {
	if req.Board == nil {
		return nil, errors.New("upload: no board profile")
	}
	if req.Filesystem && req.Layout == nil {
		return nil, errors.New("upload: filesystem upload without flash layout")
	}
	proto := req.Protocol
	if proto == "" {
		proto = req.Board.UploadProtocol()
	}
	job := &Job{Kind: Select(proto, req.Board), Protocol: proto}
	var err error
	switch job.Kind {
	case MassStorage:
		err = massStorage(&req, job)
	case Picotool:
		err = picotool(&req, job)
	case JLink:
		err = jlink(&req, job)
	case OpenOCD:
		err = openocd(&req, job)
	case OTA:
		err = ota(&req, job)
	case Custom:
		err = custom(&req, job)
	default:
		warnf("unknown upload protocol %s", proto)
	}
	if err != nil {
		return nil, err
	}
	job.vars = map[string]string{
		"SOURCE":      job.Source,
		"BUILD_DIR":   req.buildDir(),
		"PROJECT_DIR": req.Options.ProjectDir,
	}
	if req.Options.UploadPort != "" {
		job.vars[action.VarUploadPort] = req.Options.UploadPort
	}
	if l := req.Layout; l != nil {
		job.vars["FS_START"] = hex(l.FSStart)
		job.vars["FS_END"] = hex(l.FSEnd)
	}
	return job, nil
}

// source returns the firmware or the filesystem image path depending on the
// request.
func (r *Request) source(firmware string) string {
	if r.Filesystem {
		return r.Artifacts.FSImage
	}
	return firmware
}
