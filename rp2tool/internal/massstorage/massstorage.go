// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package massstorage finds the USB mass storage volume exposed by the
// RP2040/RP2350 boot ROM and copies UF2 images onto it.
package massstorage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/rp2tools/rp2plat/rp2tool/internal/util"
)

// InfoFile is the file present in the root directory of every UF2 bootloader
// volume.
const InfoFile = "INFO_UF2.TXT"

// Roots returns the directories under which the removable volumes are
// mounted on the current OS.
func Roots() []string {
	switch runtime.GOOS {
	case "windows":
		var roots []string
		for c := 'D'; c <= 'Z'; c++ {
			roots = append(roots, string(c)+`:\`)
		}
		return roots
	case "darwin":
		return []string{"/Volumes"}
	}
	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return []string{
		filepath.Join("/media", name),
		filepath.Join("/run/media", name),
		"/media",
		"/mnt",
	}
}

func matches(dir string, labels []string) bool {
	base := filepath.Base(dir)
	for _, l := range labels {
		if strings.EqualFold(base, l) {
			return true
		}
	}
	info, err := os.ReadFile(filepath.Join(dir, InfoFile))
	if err != nil {
		return false
	}
	info = bytes.ToUpper(info)
	for _, l := range labels {
		if bytes.Contains(info, []byte(strings.ToUpper(l))) {
			return true
		}
	}
	return false
}

// Find looks for the volume in the roots and in their subdirectories. A volume
// matches if its name equals one of the labels or its INFO_UF2.TXT file
// mentions one of them.
func Find(roots, labels []string) (string, bool) {
	for _, root := range roots {
		if matches(root, labels) {
			return root, true
		}
		ents, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range ents {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(root, e.Name())
			if matches(dir, labels) {
				return dir, true
			}
		}
	}
	return "", false
}

var ErrNotFound = errors.New("no mass storage volume of the board found")

// PollInterval is the period of volume lookups in Wait.
var PollInterval = 500 * time.Millisecond

// Wait waits up to timeout for the volume to appear (see Find).
func Wait(ctx context.Context, roots, labels []string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(PollInterval)
	defer tick.Stop()
	for {
		if dir, ok := Find(roots, labels); ok {
			glog.V(1).Infof("found volume %s", dir)
			return dir, nil
		}
		select {
		case <-ctx.Done():
			return "", ErrNotFound
		case <-tick.C:
		}
	}
}

// Copy copies the src file to the dir directory and returns the path of the
// created file.
func Copy(src, dir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	const chunk = 64 * 1024
	for i := 0; i < len(data); i += chunk {
		util.Progress("Copying:", i, len(data), 1024, "KiB")
		if _, err = f.Write(data[i:min(i+chunk, len(data))]); err != nil {
			f.Close()
			return "", err
		}
	}
	util.Progress("Copied: ", len(data), len(data), 1024, "KiB")
	if err = f.Sync(); err != nil {
		glog.V(1).Infof("sync %s: %v", dst, err)
	}
	return dst, f.Close()
}
