// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package project holds the configuration shared by the rp2tool commands: the
// board manifest, the filesystem size and the location of the build artifacts.
package project

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"

	"github.com/juju/errors"

	"github.com/rp2tools/rp2plat/rp2tool/internal/board"
	"github.com/rp2tools/rp2plat/rp2tool/internal/partition"
	"github.com/rp2tools/rp2plat/rp2tool/internal/upload"
	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

// Environment variables used as the flag defaults.
const (
	EnvBoard   = "RP2TOOL_BOARD"
	EnvTools   = "RP2TOOL_TOOLS"
	EnvOpenOCD = "RP2TOOL_OPENOCD"
)

// DefaultFSSize is used if neither the -fs-size flag nor the board manifest
// specify the filesystem size.
const DefaultFSSize = "0MB"

type Config struct {
	BoardFile  string
	FSSize     string // overrides build.filesystem_size
	ProjectDir string
	BuildDir   string
	Prog       string // base name of the build artifacts
	ToolsDir   string
	OpenOCDDir string
	Verbose    bool
}

// AddFlags registers the common flags in fs.
func (c *Config) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.BoardFile, "board", util.Getenv(EnvBoard, ""),
		"board manifest `file` (JSON), default $"+EnvBoard,
	)
	fs.StringVar(
		&c.FSSize, "fs-size", "",
		"filesystem `size` (e.g. 512K, 1.5M), overrides build.filesystem_size",
	)
	fs.StringVar(&c.ProjectDir, "project", ".", "project `dir`ectory")
	fs.StringVar(&c.BuildDir, "build", "", "build `dir`ectory (default PROJECT/.pio/build)")
	fs.StringVar(&c.Prog, "prog", "firmware", "base `name` of the build artifacts")
	fs.StringVar(
		&c.ToolsDir, "tools", util.Getenv(EnvTools, ""),
		"`dir`ectory of picotool, rp2040load, mklittlefs and espota.py, default $"+EnvTools,
	)
	fs.StringVar(
		&c.OpenOCDDir, "openocd", util.Getenv(EnvOpenOCD, ""),
		"OpenOCD package `dir`ectory, default $"+EnvOpenOCD,
	)
	fs.BoolVar(&c.Verbose, "verbose", false, "print the diagnostic information")
}

// Setup applies the parsed flags to the logger.
func (c *Config) Setup() {
	if c.Verbose {
		flag.Set("v", "1")
	}
}

// Build returns the build directory.
func (c *Config) Build() string {
	if c.BuildDir != "" {
		return c.BuildDir
	}
	return filepath.Join(c.ProjectDir, ".pio", "build")
}

// Path returns the path to the build artifact with the given extension.
func (c *Config) Path(ext string) string {
	return filepath.Join(c.Build(), c.Prog+ext)
}

// FSImage is the name of the filesystem image in the build directory.
const FSImage = "littlefs.bin"

func (c *Config) Artifacts() upload.Artifacts {
	return upload.Artifacts{
		ELF:     c.Path(".elf"),
		Bin:     c.Path(".bin"),
		UF2:     c.Path(".uf2"),
		Hex:     c.Path(".hex"),
		FSImage: filepath.Join(c.Build(), FSImage),
	}
}

// Tool returns the path to the tool from the tools directory.
func (c *Config) Tool(name string) string {
	if c.ToolsDir == "" {
		return name
	}
	return filepath.Join(c.ToolsDir, name)
}

// Board loads the board manifest.
func (c *Config) Board() (*board.Profile, error) {
	if c.BoardFile == "" {
		return nil, errors.New("no board manifest, use -board or $" + EnvBoard)
	}
	return board.Load(c.BoardFile)
}

// Load loads the board manifest and computes the flash layout. The returned
// profile has its maximum program size replaced by the layout FlashLength.
func (c *Config) Load() (*board.Profile, *partition.Layout, error) {
	b, err := c.Board()
	if err != nil {
		return nil, nil, err
	}
	fsSize := c.FSSize
	if fsSize == "" {
		fsSize = b.Build.FilesystemSize
	}
	if fsSize == "" {
		fsSize = DefaultFSSize
	}
	l, err := partition.New(b.Upload.MaximumSize, fsSize)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "board %s", b.ID)
	}
	return b.WithMaxSize(l.FlashLength), l, nil
}

// Env returns the layout and the board values in the KEY=VALUE form for the
// build scripts.
func Env(b *board.Profile, l *partition.Layout) []string {
	h := func(u uint32) string { return "0x" + strconv.FormatUint(uint64(u), 16) }
	return []string{
		"RP2_MCU=" + b.Build.MCU,
		"RP2_MAXIMUM_SIZE=" + strconv.FormatUint(uint64(b.Upload.MaximumSize), 10),
		"RP2_FLASH_LENGTH=" + strconv.FormatUint(uint64(l.FlashLength), 10),
		"RP2_EEPROM_START=" + h(l.EEPROMStart),
		"RP2_FS_START=" + h(l.FSStart),
		"RP2_FS_END=" + h(l.FSEnd),
		"RP2_FS_PAGE=" + strconv.Itoa(int(l.FSPage)),
		"RP2_FS_BLOCK=" + strconv.Itoa(int(l.FSBlock)),
	}
}

// Exists reports whether the file exists.
func Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
