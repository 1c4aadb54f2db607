// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package board

import (
	"errors"
	"slices"
	"testing"
)

func TestLoad(t *testing.T) {
	p, err := Load("testdata/pico.json")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "pico" {
		t.Errorf("ID = %q, want pico", p.ID)
	}
	if p.Upload.MaximumSize != 2097152 {
		t.Errorf("MaximumSize = %d", p.Upload.MaximumSize)
	}
	if !p.Upload.Use1200bpsTouch || !p.Upload.WaitForUploadPort {
		t.Errorf("upload flags = %+v", p.Upload)
	}
	if _, ok := p.OffsetAddress(); ok {
		t.Errorf("unexpected offset address")
	}
	if p.IsRP2350() {
		t.Errorf("rp2040 reported as RP2350")
	}
	if got := p.DiskLabels(); !slices.Equal(got, []string{"RPI-RP2"}) {
		t.Errorf("DiskLabels() = %q", got)
	}
}

func TestParseErrors(t *testing.T) {
	for _, data := range []string{
		`{`,
		`{"upload": {}}`,
		`{"upload": {"maximum_size": 4096, "offset_address": "zzz"}}`,
	} {
		if _, err := Parse("x", []byte(data)); err == nil {
			t.Errorf("Parse(%s): no error", data)
		}
	}
}

func TestOffsetAddress(t *testing.T) {
	p, err := Parse("x", []byte(`{"upload": {"maximum_size": 4194304, "offset_address": "0x10000000"}}`))
	if err != nil {
		t.Fatal(err)
	}
	addr, ok := p.OffsetAddress()
	if !ok || addr != 0x10000000 {
		t.Errorf("OffsetAddress() = %#x, %v", addr, ok)
	}
}

func TestDiskLabels(t *testing.T) {
	p := &Profile{Build: Build{MCU: "RP2350"}}
	if got := p.DiskLabels(); !slices.Equal(got, []string{"RP2350"}) {
		t.Errorf("DiskLabels() = %q", got)
	}
	p.Upload.DiskLabels = []string{"NANO"}
	if got := p.DiskLabels(); !slices.Equal(got, []string{"NANO"}) {
		t.Errorf("DiskLabels() = %q", got)
	}
}

func TestWithMaxSize(t *testing.T) {
	p, err := Load("testdata/pico.json")
	if err != nil {
		t.Fatal(err)
	}
	q := p.WithMaxSize(1044480)
	if q.Upload.MaximumSize != 1044480 {
		t.Errorf("copy MaximumSize = %d", q.Upload.MaximumSize)
	}
	if p.Upload.MaximumSize != 2097152 {
		t.Errorf("original modified: %d", p.Upload.MaximumSize)
	}
}

func TestWithDefaultDebugTools(t *testing.T) {
	p, err := Load("testdata/pico.json")
	if err != nil {
		t.Fatal(err)
	}
	q, err := p.WithDefaultDebugTools()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Debug.Tools) != 0 {
		t.Errorf("original modified: %v", p.Debug.Tools)
	}
	for _, name := range []string{"cmsis-dap", "jlink", "raspberrypi-swd"} {
		if !q.HasDebugTool(name) {
			t.Errorf("missing debug tool %s", name)
		}
	}
	cd := q.Debug.Tools["cmsis-dap"]
	want := []string{
		"-s", "$PACKAGE_DIR/share/openocd/scripts",
		"-f", "interface/cmsis-dap.cfg",
		"-f", "target/rp2040.cfg",
	}
	if !slices.Equal(cd.Server.Arguments, want) {
		t.Errorf("cmsis-dap arguments = %q", cd.Server.Arguments)
	}
	if !cd.Onboard {
		t.Errorf("cmsis-dap should be onboard")
	}
	jl := q.Debug.Tools["jlink"]
	if !slices.Contains(jl.Server.Arguments, "RP2040_M0_0") {
		t.Errorf("jlink arguments = %q", jl.Server.Arguments)
	}
}

func TestWithDefaultDebugToolsKeepsExisting(t *testing.T) {
	p := &Profile{
		ID:     "x",
		Upload: Upload{Protocols: []string{"cmsis-dap"}},
		Debug: Debug{Tools: map[string]DebugTool{
			"cmsis-dap": {Server: Server{Executable: "custom"}},
		}},
	}
	q, err := p.WithDefaultDebugTools()
	if err != nil {
		t.Fatal(err)
	}
	if q.Debug.Tools["cmsis-dap"].Server.Executable != "custom" {
		t.Errorf("existing tool replaced")
	}
}

func TestWithDefaultDebugToolsMissing(t *testing.T) {
	tests := []struct {
		proto string
		key   string
	}{
		{"jlink", "debug.jlink_device"},
		{"raspberrypi-swd", "debug.openocd_target"},
	}
	for _, tc := range tests {
		p := &Profile{ID: "x", Upload: Upload{Protocols: []string{tc.proto}}}
		_, err := p.WithDefaultDebugTools()
		var me *MissingError
		if !errors.As(err, &me) || me.Key != tc.key {
			t.Errorf("%s: err = %v, want missing %s", tc.proto, err, tc.key)
		}
	}
}

func TestDebugServer(t *testing.T) {
	p, err := Load("testdata/pico.json")
	if err != nil {
		t.Fatal(err)
	}
	p, err = p.WithDefaultDebugTools()
	if err != nil {
		t.Fatal(err)
	}
	_, args, err := p.DebugServer("cmsis-dap", "")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(args); n < 2 || args[n-2] != "-c" || args[n-1] != "adapter speed 5000" {
		t.Errorf("cmsis-dap args = %q", args)
	}
	_, args, err = p.DebugServer("jlink", "1000")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(args); n < 2 || args[n-2] != "-speed" || args[n-1] != "1000" {
		t.Errorf("jlink args = %q", args)
	}
	_, args, err = p.DebugServer("raspberrypi-swd", "1000")
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(args, "-speed") || slices.Contains(args, "adapter speed 1000") {
		t.Errorf("raspberrypi-swd args = %q", args)
	}
	if _, _, err := p.DebugServer("stlink", ""); err == nil {
		t.Errorf("unknown tool: no error")
	}
}
