// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsimage

import (
	"errors"
	"slices"
	"testing"

	"github.com/rp2tools/rp2plat/rp2tool/internal/partition"
)

func TestCommand(t *testing.T) {
	l, err := partition.New(2<<20, "64KB")
	if err != nil {
		t.Fatal(err)
	}
	a, err := Command("", "data", "build/littlefs.bin", l)
	if err != nil {
		t.Fatal(err)
	}
	if a.Tool != DefaultTool {
		t.Errorf("Tool = %q", a.Tool)
	}
	want := []string{"-c", "data", "-p", "256", "-b", "4096", "-s", "65536", "build/littlefs.bin"}
	if !slices.Equal(a.Args, want) {
		t.Errorf("Args = %q, want %q", a.Args, want)
	}
}

func TestCommandNoFilesystem(t *testing.T) {
	l, err := partition.New(2<<20, "0MB")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Command("", "data", "fs.bin", l); !errors.Is(err, ErrNoFilesystem) {
		t.Errorf("err = %v, want ErrNoFilesystem", err)
	}
}
