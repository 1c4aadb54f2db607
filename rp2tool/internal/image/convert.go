// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/marcinbor85/gohex"
)

type Format int

const (
	Bin Format = iota
	Hex
	UF2
)

func (f Format) String() string {
	switch f {
	case Bin:
		return "bin"
	case Hex:
		return "hex"
	case UF2:
		return "uf2"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

const Pad = 0xff

// WriteHex writes sections to w in the Intel HEX format.
func WriteHex(w io.Writer, ss Sections) error {
	ss.SortByPaddr()
	mem := gohex.NewMemory()
	for _, s := range ss {
		if s.Paddr>>32 != 0 {
			return errors.Errorf("hex: section %s address %#x doesn't fit in 32 bits", s.Name, s.Paddr)
		}
		if err := mem.AddBinary(uint32(s.Paddr), s.Data); err != nil {
			return errors.Annotatef(err, "hex: section %s", s.Name)
		}
	}
	return errors.Trace(mem.DumpIntelHex(w, 16))
}

// WriteUF2 writes sections to w in the UF2 format using the family ID.
func WriteUF2(w io.Writer, ss Sections, family uint32) error {
	if len(ss) == 0 {
		return errors.New("uf2: nothing to write")
	}
	buf := bytes.NewBuffer(make([]byte, 0, ss.Size()*5/4))
	if _, err := ss.Flatten(buf, Pad); err != nil {
		return errors.Trace(err)
	}
	addr := uint32(ss[0].Paddr)
	if uint64(addr) != ss[0].Paddr {
		return errors.Errorf("uf2: the target address %#x doesn't fit in 32 bits", ss[0].Paddr)
	}
	u := NewUF2Writer(w, addr, UF2FamilyIDPresent, family, buf.Len())
	if _, err := u.Write(buf.Bytes()); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(u.Flush())
}

// FSFamily returns the UF2 family used for the raw flash images (e.g. the
// filesystem) of the MCU. The RP2350 boot ROM places the absolute family
// blocks at their addresses regardless of the partition table.
func FSFamily(mcu string) uint32 {
	if Family(mcu) == FamilyRP2040 {
		return FamilyRP2040
	}
	return FamilyAbsolute
}

// RawToUF2 converts the raw image in to the UF2 file out that places it at the
// addr flash address.
func RawToUF2(in, out string, addr, family uint32) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return errors.Trace(err)
	}
	if len(data) == 0 {
		return errors.Errorf("uf2: %s is empty", in)
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Trace(err)
	}
	w := bufio.NewWriter(f)
	u := NewUF2Writer(w, addr, UF2FamilyIDPresent, family, len(data))
	_, err = u.Write(data)
	if err == nil {
		err = u.Flush()
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.Annotatef(err, "%s", out)
}

// Convert reads the ELF file and writes its loadable sections to the out file
// in the given format. The family is used only by the UF2 format.
func Convert(elfName, out string, format Format, family uint32) error {
	ss, err := ReadELF(elfName)
	if err != nil {
		return errors.Annotate(err, "readelf")
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Trace(err)
	}
	w := bufio.NewWriter(f)
	switch format {
	case Bin:
		_, err = ss.Flatten(w, Pad)
	case Hex:
		err = WriteHex(w, ss)
	case UF2:
		err = WriteUF2(w, ss, family)
	default:
		err = errors.Errorf("unknown format %v", format)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.Annotatef(err, "%s", out)
}
