// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package action

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"

	"github.com/rp2tools/rp2plat/rp2tool/internal/image"
)

// WriteFile writes the file, creating its directory if needed.
type WriteFile struct {
	Name string
	Data []byte
}

func (a *WriteFile) String() string { return "Writing " + a.Name }

func (a *WriteFile) Run(ctx context.Context, s *State) error {
	if err := os.MkdirAll(filepath.Dir(a.Name), 0o777); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.WriteFile(a.Name, a.Data, 0o666))
}

// Delay waits for the specified time.
type Delay struct {
	Msg string
	D   time.Duration
}

func (a *Delay) String() string {
	if a.Msg != "" {
		return a.Msg
	}
	return "Waiting " + a.D.String()
}

func (a *Delay) Run(ctx context.Context, s *State) error {
	t := time.NewTimer(a.D)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Convert converts the ELF file to the Bin, Hex or UF2 image.
type Convert struct {
	ELF    string
	Out    string
	Format image.Format
	Family uint32
}

func (a *Convert) String() string { return "Building " + a.Out }

func (a *Convert) Run(ctx context.Context, s *State) error {
	return image.Convert(s.Expand(a.ELF), s.Expand(a.Out), a.Format, a.Family)
}

// RawToUF2 wraps the raw flash image into the UF2 file placing it at Addr.
type RawToUF2 struct {
	In     string
	Out    string
	Addr   uint32
	Family uint32
}

func (a *RawToUF2) String() string { return "Building " + a.Out }

func (a *RawToUF2) Run(ctx context.Context, s *State) error {
	return image.RawToUF2(s.Expand(a.In), s.Expand(a.Out), a.Addr, a.Family)
}
