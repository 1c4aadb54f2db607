// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package action

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/rp2tools/rp2plat/rp2tool/internal/massstorage"
	"github.com/rp2tools/rp2plat/rp2tool/internal/serialport"
)

// DetectPort determines the serial port of the board and stores it in the
// UPLOAD_PORT state variable. A port set in advance is used as is. If Touch
// is set the port is opened at 1200 bps to reset the board into the
// bootloader and if Wait is set the action waits for the port to reappear
// (possibly under a new name).
type DetectPort struct {
	Touch   bool
	Wait    bool
	Timeout time.Duration
	Lister  serialport.Lister // nil means serialport.System
}

func (a *DetectPort) String() string { return "Looking for upload port..." }

func (a *DetectPort) Run(ctx context.Context, s *State) error {
	l := a.Lister
	if l == nil {
		l = serialport.System{}
	}
	before, err := l.List()
	if err != nil {
		return err
	}
	port := s.Vars[VarUploadPort]
	if port == "" {
		port, err = serialport.Pick(before)
		if errors.Is(err, serialport.ErrNotFound) {
			glog.Warning("no serial port of the board found, assuming it's already in BOOTSEL mode")
			return nil
		}
	}
	if a.Touch {
		if err := serialport.Touch(port, 1200); err != nil {
			glog.Warningf("1200 bps touch of %s: %v", port, err)
		}
	}
	if a.Wait {
		timeout := a.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		port, err = serialport.WaitForNew(ctx, l, before, port, timeout)
		if err != nil {
			return err
		}
	}
	s.Vars[VarUploadPort] = port
	return nil
}

// TouchPort opens the serial port of the board at 1200 bps to reset it into
// the bootloader. The port is taken from the UPLOAD_PORT state variable or
// found using Lister. A board without a serial port is assumed to be already
// in the bootloader.
type TouchPort struct {
	Lister serialport.Lister // nil means serialport.System
}

func (a *TouchPort) String() string { return "Resetting board into bootloader..." }

func (a *TouchPort) Run(ctx context.Context, s *State) error {
	l := a.Lister
	if l == nil {
		l = serialport.System{}
	}
	port := s.Vars[VarUploadPort]
	if port == "" {
		var err error
		port, err = serialport.Autodetect(l)
		if err != nil {
			glog.Warningf("no serial port of the board found: %v", err)
			return nil
		}
	}
	if err := serialport.Touch(port, 1200); err != nil {
		glog.Warningf("1200 bps touch of %s: %v", port, err)
	}
	return nil
}

// DetectDisk waits for the mass storage volume of the board and stores its
// path in the UPLOAD_DISK state variable.
type DetectDisk struct {
	Labels  []string
	Roots   []string // nil means massstorage.Roots()
	Timeout time.Duration
}

func (a *DetectDisk) String() string { return "Looking for upload disk..." }

func (a *DetectDisk) Run(ctx context.Context, s *State) error {
	roots := a.Roots
	if roots == nil {
		roots = massstorage.Roots()
	}
	timeout := a.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dir, err := massstorage.Wait(ctx, roots, a.Labels, timeout)
	if err != nil {
		return err
	}
	s.Vars[VarUploadDisk] = dir
	return nil
}

// CopyToDisk copies the image to the volume found by DetectDisk.
type CopyToDisk struct {
	Source string
}

func (a *CopyToDisk) String() string { return "Uploading " + a.Source }

func (a *CopyToDisk) Run(ctx context.Context, s *State) error {
	dir := s.Vars[VarUploadDisk]
	if dir == "" {
		return massstorage.ErrNotFound
	}
	_, err := massstorage.Copy(s.Expand(a.Source), dir)
	return err
}
