// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package board reads the board manifests (PlatformIO JSON format) of the
// RP2040/RP2350 boards.
package board

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

type Server struct {
	Package    string   `json:"package,omitempty"`
	Executable string   `json:"executable"`
	Arguments  []string `json:"arguments,omitempty"`
}

type DebugTool struct {
	Server  Server `json:"server"`
	Onboard bool   `json:"onboard,omitempty"`
}

type Build struct {
	MCU            string `json:"mcu"`
	FilesystemSize string `json:"filesystem_size,omitempty"`
}

type Upload struct {
	MaximumSize       uint32   `json:"maximum_size"`
	OffsetAddress     string   `json:"offset_address,omitempty"`
	Protocol          string   `json:"protocol,omitempty"`
	Protocols         []string `json:"protocols,omitempty"`
	Use1200bpsTouch   bool     `json:"use_1200bps_touch,omitempty"`
	WaitForUploadPort bool     `json:"wait_for_upload_port,omitempty"`
	DiskLabels        []string `json:"disk_labels,omitempty"`
}

type Debug struct {
	JLinkDevice   string               `json:"jlink_device,omitempty"`
	OpenOCDTarget string               `json:"openocd_target,omitempty"`
	OnboardTools  []string             `json:"onboard_tools,omitempty"`
	DefaultTools  []string             `json:"default_tools,omitempty"`
	Speed         string               `json:"speed,omitempty"`
	Tools         map[string]DebugTool `json:"tools,omitempty"`
}

// Profile is the board description. It's treated as read-only after it has
// been loaded: the methods that change it return modified copies.
type Profile struct {
	ID     string `json:"-"`
	Name   string `json:"name"`
	Vendor string `json:"vendor,omitempty"`
	Build  Build  `json:"build"`
	Upload Upload `json:"upload"`
	Debug  Debug  `json:"debug"`
}

// Load reads the board manifest from the JSON file. The board ID is the base
// name of the file without extension.
func Load(name string) (*Profile, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	id := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	p, err := Parse(id, data)
	return p, errors.Annotatef(err, "board %s", name)
}

// Parse parses the JSON board manifest.
func Parse(id string, data []byte) (*Profile, error) {
	p := new(Profile)
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Trace(err)
	}
	p.ID = id
	if p.Upload.MaximumSize == 0 {
		return nil, errors.NotValidf("upload.maximum_size of zero")
	}
	if _, _, err := p.offsetAddress(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) offsetAddress() (uint32, bool, error) {
	s := p.Upload.OffsetAddress
	if s == "" {
		return 0, false, nil
	}
	u, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, false, errors.Errorf("bad upload.offset_address %q: %v", s, err)
	}
	return uint32(u), true, nil
}

// OffsetAddress returns the fixed flash offset of the firmware image if the
// board defines it.
func (p *Profile) OffsetAddress() (addr uint32, ok bool) {
	addr, ok, _ = p.offsetAddress()
	return
}

// IsRP2350 reports whether the board MCU belongs to the RP2350 family.
func (p *Profile) IsRP2350() bool {
	return strings.HasPrefix(strings.ToLower(p.Build.MCU), "rp2350")
}

// DiskLabels returns the volume labels of the mass storage device exposed by
// the boot ROM of the board MCU.
func (p *Profile) DiskLabels() []string {
	if len(p.Upload.DiskLabels) != 0 {
		return slices.Clone(p.Upload.DiskLabels)
	}
	if p.IsRP2350() {
		return []string{"RP2350"}
	}
	return []string{"RPI-RP2"}
}

// UploadProtocol returns the default upload protocol of the board.
func (p *Profile) UploadProtocol() string {
	if p.Upload.Protocol != "" {
		return p.Upload.Protocol
	}
	return "picotool"
}

// HasDebugTool reports whether the debug tools table contains name.
func (p *Profile) HasDebugTool(name string) bool {
	_, ok := p.Debug.Tools[name]
	return ok
}

func (p *Profile) clone() *Profile {
	c := *p
	c.Upload.Protocols = slices.Clone(p.Upload.Protocols)
	c.Upload.DiskLabels = slices.Clone(p.Upload.DiskLabels)
	c.Debug.OnboardTools = slices.Clone(p.Debug.OnboardTools)
	c.Debug.DefaultTools = slices.Clone(p.Debug.DefaultTools)
	if p.Debug.Tools != nil {
		c.Debug.Tools = make(map[string]DebugTool, len(p.Debug.Tools))
		for k, t := range p.Debug.Tools {
			t.Server.Arguments = slices.Clone(t.Server.Arguments)
			c.Debug.Tools[k] = t
		}
	}
	return &c
}

// WithMaxSize returns a copy of p with the maximum program size set to n.
func (p *Profile) WithMaxSize(n uint32) *Profile {
	c := p.clone()
	c.Upload.MaximumSize = n
	return c
}

// MissingError reports a board manifest without a value required by the
// selected tool.
type MissingError struct {
	Board string
	Key   string
	Tool  string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("board %s: missing %s required by %s", e.Board, e.Key, e.Tool)
}

var defaultLinks = []string{"cmsis-dap", "jlink", "raspberrypi-swd"}

// WithDefaultDebugTools returns a copy of p with the debug tools table
// completed by the default entries for the links listed in upload.protocols.
func (p *Profile) WithDefaultDebugTools() (*Profile, error) {
	c := p.clone()
	if c.Debug.Tools == nil {
		c.Debug.Tools = make(map[string]DebugTool)
	}
	for _, link := range defaultLinks {
		if !slices.Contains(c.Upload.Protocols, link) || c.HasDebugTool(link) {
			continue
		}
		if link == "jlink" {
			if c.Debug.JLinkDevice == "" {
				return nil, &MissingError{c.ID, "debug.jlink_device", link}
			}
			exe := "JLinkGDBServer"
			if runtime.GOOS == "windows" {
				exe = "JLinkGDBServerCL.exe"
			}
			c.Debug.Tools[link] = DebugTool{
				Server: Server{
					Package:    "tool-jlink",
					Executable: exe,
					Arguments: []string{
						"-singlerun",
						"-if", "SWD",
						"-select", "USB",
						"-device", c.Debug.JLinkDevice,
						"-port", "2331",
					},
				},
				Onboard: slices.Contains(c.Debug.OnboardTools, link),
			}
			continue
		}
		if c.Debug.OpenOCDTarget == "" {
			return nil, &MissingError{c.ID, "debug.openocd_target", link}
		}
		c.Debug.Tools[link] = DebugTool{
			Server: Server{
				Package:    "tool-openocd-raspberrypi",
				Executable: "bin/openocd",
				Arguments: []string{
					"-s", "$PACKAGE_DIR/share/openocd/scripts",
					"-f", "interface/" + link + ".cfg",
					"-f", "target/" + c.Debug.OpenOCDTarget,
				},
			},
			Onboard: slices.Contains(c.Debug.OnboardTools, link),
		}
	}
	return c, nil
}

const DefaultDebugSpeed = "5000"

// DebugServer returns the executable and the arguments of the debug server
// for the debug tool. The adapter speed is added to the arguments of the
// CMSIS-DAP and J-Link servers.
func (p *Profile) DebugServer(tool, speed string) (exe string, args []string, err error) {
	t, ok := p.Debug.Tools[tool]
	if !ok {
		return "", nil, errors.NotFoundf("debug tool %q for board %s", tool, p.ID)
	}
	if speed == "" {
		speed = p.Debug.Speed
	}
	if speed == "" {
		speed = DefaultDebugSpeed
	}
	exe = t.Server.Executable
	args = slices.Clone(t.Server.Arguments)
	switch {
	case slices.Contains(args, "interface/cmsis-dap.cfg"):
		args = append(args, "-c", "adapter speed "+speed)
	case strings.Contains(strings.ToLower(exe), "jlink"):
		args = append(args, "-speed", speed)
	}
	return exe, args, nil
}
