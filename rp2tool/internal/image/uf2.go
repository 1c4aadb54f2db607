// Copyright 2024 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	UF2NotMainFlash         = 0x00000001
	UF2FileContainer        = 0x00001000
	UF2FamilyIDPresent      = 0x00002000
	UF2MD5ChecksumPresent   = 0x00004000
	UF2ExtensionTagsPresent = 0x00008000
)

// UF2 families
const (
	FamilyRP2040      uint32 = 0xe48bff56
	FamilyAbsolute    uint32 = 0xe48bff57
	FamilyData        uint32 = 0xe48bff58
	FamilyRP2350ARMS  uint32 = 0xe48bff59
	FamilyRP2350RISCV uint32 = 0xe48bff5a
	FamilyRP2350ARMNS uint32 = 0xe48bff5b
)

// Family returns the UF2 family ID for the MCU name used in board manifests.
func Family(mcu string) uint32 {
	mcu = strings.ToLower(mcu)
	switch {
	case strings.HasPrefix(mcu, "rp2350") && strings.Contains(mcu, "riscv"):
		return FamilyRP2350RISCV
	case strings.HasPrefix(mcu, "rp2350"):
		return FamilyRP2350ARMS
	}
	return FamilyRP2040
}

// FamilyNames maps the family names accepted by ParseFamily to the IDs.
var FamilyNames = map[string]uint32{
	"rp2040":        FamilyRP2040,
	"absolute":      FamilyAbsolute,
	"data":          FamilyData,
	"rp2350-arm-s":  FamilyRP2350ARMS,
	"rp2350-riscv":  FamilyRP2350RISCV,
	"rp2350-arm-ns": FamilyRP2350ARMNS,
}

// ParseFamily parses the family name or the 32-bit family ID.
func ParseFamily(s string) (uint32, error) {
	if id, ok := FamilyNames[strings.ToLower(s)]; ok {
		return id, nil
	}
	u, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("uf2: bad family ID: %q", s)
	}
	return uint32(u), nil
}

const uf2PayloadSize = 256

type uf2block struct {
	Magic0 uint32
	Magic1 uint32
	Flags  uint32
	Addr   uint32
	Len    uint32
	Seq    uint32
	Total  uint32
	Family uint32
	Data   [uf2PayloadSize]byte
	_      [476 - uf2PayloadSize]byte
	Magic2 uint32
}

type UF2Writer struct {
	w io.Writer
	b uf2block
}

func NewUF2Writer(w io.Writer, addr, flags, family uint32, size int) *UF2Writer {
	u := new(UF2Writer)
	u.w = w
	u.b.Magic0 = 0x0a324655
	u.b.Magic1 = 0x9e5d5157
	u.b.Flags = flags
	u.b.Addr = addr
	u.b.Total = uint32((size + len(u.b.Data) - 1) / len(u.b.Data))
	u.b.Family = family
	u.b.Magic2 = 0x0ab16f30
	return u
}

func (u *UF2Writer) Write(p []byte) (n int, err error) {
	b := &u.b
	for len(p) != 0 {
		m := copy(b.Data[b.Len:], p)
		n += m
		p = p[m:]
		b.Len += uint32(m)
		if int(b.Len) == len(b.Data) {
			if err = u.emit(); err != nil {
				return
			}
		}
	}
	return
}

func (u *UF2Writer) emit() error {
	b := &u.b
	err := binary.Write(u.w, binary.LittleEndian, b)
	b.Addr += b.Len
	b.Seq++
	b.Len = 0
	return err
}

// Flush writes the last, partially filled block padded with zeros.
func (u *UF2Writer) Flush() error {
	b := &u.b
	if b.Len == 0 {
		return nil
	}
	clear(b.Data[b.Len:])
	b.Len = uint32(len(b.Data))
	return u.emit()
}
