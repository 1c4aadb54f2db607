// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fsimage builds the LittleFS image of the project data directory.
package fsimage

import (
	"errors"
	"strconv"

	"github.com/rp2tools/rp2plat/rp2tool/internal/action"
	"github.com/rp2tools/rp2plat/rp2tool/internal/partition"
)

// DefaultTool is the name of the LittleFS image builder.
const DefaultTool = "mklittlefs"

var ErrNoFilesystem = errors.New("the filesystem size is zero, set build.filesystem_size")

// Command returns the action that packs dataDir into the out image sized and
// shaped according to the layout.
func Command(tool, dataDir, out string, l *partition.Layout) (*action.Exec, error) {
	if l.FSSize() == 0 {
		return nil, ErrNoFilesystem
	}
	if tool == "" {
		tool = DefaultTool
	}
	return &action.Exec{
		Msg:  "Building file system image from '" + dataDir + "' directory to " + out,
		Tool: tool,
		Args: []string{
			"-c", dataDir,
			"-p", strconv.FormatUint(uint64(l.FSPage), 10),
			"-b", strconv.FormatUint(uint64(l.FSBlock), 10),
			"-s", strconv.FormatUint(uint64(l.FSSize()), 10),
			out,
		},
	}, nil
}
