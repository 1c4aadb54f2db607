// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package project

import (
	"flag"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeBoard(t *testing.T, dir, data string) string {
	t.Helper()
	name := filepath.Join(dir, "board.json")
	if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestFlags(t *testing.T) {
	t.Setenv(EnvTools, "/opt/tools")
	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.AddFlags(fs)
	if err := fs.Parse([]string{"-project", "p", "-prog", "blink"}); err != nil {
		t.Fatal(err)
	}
	if c.ToolsDir != "/opt/tools" {
		t.Errorf("ToolsDir = %q", c.ToolsDir)
	}
	a := c.Artifacts()
	if want := filepath.Join("p", ".pio", "build", "blink.elf"); a.ELF != want {
		t.Errorf("ELF = %s, want %s", a.ELF, want)
	}
	if want := filepath.Join("p", ".pio", "build", FSImage); a.FSImage != want {
		t.Errorf("FSImage = %s", a.FSImage)
	}
	if got := c.Tool("picotool"); got != filepath.Join("/opt/tools", "picotool") {
		t.Errorf("Tool = %s", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	c := Config{BoardFile: writeBoard(t, dir, `{
		"build": {"mcu": "rp2040", "filesystem_size": "1M"},
		"upload": {"maximum_size": 2097152}
	}`)}
	b, l, err := c.Load()
	if err != nil {
		t.Fatal(err)
	}
	if l.FSStart != 0x100ff000 || l.FlashLength != 1044480 {
		t.Errorf("layout = %+v", l)
	}
	if b.Upload.MaximumSize != l.FlashLength {
		t.Errorf("MaximumSize = %d", b.Upload.MaximumSize)
	}
	env := Env(b, l)
	if !slices.Contains(env, "RP2_FS_START=0x100ff000") || !slices.Contains(env, "RP2_FLASH_LENGTH=1044480") {
		t.Errorf("env = %q", env)
	}

	c.FSSize = "0"
	if _, l, err = c.Load(); err != nil || l.FSSize() != 0 {
		t.Errorf("override: %+v, %v", l, err)
	}

	c.FSSize = "4M"
	if _, _, err = c.Load(); err == nil {
		t.Errorf("no error for filesystem larger than flash")
	}
}

func TestNoBoard(t *testing.T) {
	var c Config
	if _, _, err := c.Load(); err == nil {
		t.Errorf("no error without board")
	}
}
