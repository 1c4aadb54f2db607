// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package partition splits the RP2040/RP2350 flash into the program area, the
// filesystem and the EEPROM emulation sector.
//
//	FlashBase                FSStart          FSEnd=EEPROMStart     end
//	|--- program (FlashLength) ---|-- filesystem --|-- EEPROM (4 KiB) --|
package partition

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

const (
	FlashBase  = 0x1000_0000 // XIP address of the external flash
	EEPROMSize = 4096        // flash tail reserved for the EEPROM emulation

	// LittleFS geometry used by mklittlefs.
	FSPage  = 256
	FSBlock = 4096
)

var (
	ErrBadSize   = errors.New("bad size expression")
	ErrSizeRange = errors.New("size out of range")

	sizeRE = regexp.MustCompile(`^((?:[0-9]*[.])?[0-9]+)([MKBmkb]*)$`)

	sizeUnits = map[string]float64{
		"":   1,
		"B":  1,
		"K":  1024,
		"KB": 1024,
		"M":  1024 * 1024,
		"MB": 1024 * 1024,
	}
)

// ParseSize parses the size expressions like "0MB", "512K", "1.5M", "4096".
func ParseSize(expr string) (uint32, error) {
	m := sizeRE.FindStringSubmatch(expr)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadSize, expr)
	}
	factor, ok := sizeUnits[strings.ToUpper(m[2])]
	if !ok {
		return 0, fmt.Errorf("%w: %q: unknown unit %q", ErrBadSize, expr, m[2])
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadSize, expr, err)
	}
	n *= factor
	if n > math.MaxUint32 {
		return 0, &RangeError{expr, n}
	}
	return uint32(n), nil
}

// RangeError is returned by ParseSize for a well-formed size that doesn't fit
// in 32 bits.
type RangeError struct {
	Expr string
	Size float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: %q", ErrSizeRange, e.Expr)
}

func (e *RangeError) Unwrap() error { return ErrSizeRange }

// warnf logs the non-fatal configuration problems.
var warnf = glog.Warningf

// TooLargeError is returned by New if the filesystem together with the EEPROM
// sector don't leave any space for the program.
type TooLargeError struct {
	FlashSize uint32
	FSSize    uint64
	Available int64 // computed program area size, always <= 0
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf(
		"filesystem too large for given flash: can at max be flash size - %d"+
			" bytes, available program size with current config would be %d"+
			" bytes",
		EEPROMSize, e.Available,
	)
}

// Layout describes the flash partitioning of a single build. All addresses
// are absolute (see FlashBase).
type Layout struct {
	FlashSize   uint32
	FlashLength uint32 // space available for the program
	EEPROMStart uint32
	FSStart     uint32
	FSEnd       uint32
	FSPage      uint32
	FSBlock     uint32
}

// New computes the flash layout for the flashSize bytes of flash and the
// filesystem size given as a size expression (see ParseSize). An unparsable
// fsSize is logged and treated as zero.
func New(flashSize uint32, fsSize string) (*Layout, error) {
	fs, err := ParseSize(fsSize)
	var re *RangeError
	switch {
	case errors.As(err, &re):
		avail := float64(flashSize) - EEPROMSize - re.Size
		if avail < math.MinInt64 {
			avail = math.MinInt64
		}
		size := uint64(math.MaxUint64)
		if re.Size < math.MaxUint64 {
			size = uint64(re.Size)
		}
		return nil, &TooLargeError{flashSize, size, int64(avail)}
	case err != nil:
		warnf("could not parse filesystem size: %v, will treat as size = 0", err)
		fs = 0
	}
	return Make(flashSize, fs)
}

// Make works like New but takes the filesystem size in bytes.
func Make(flashSize, fsSize uint32) (*Layout, error) {
	avail := int64(flashSize) - EEPROMSize - int64(fsSize)
	if avail <= 0 {
		return nil, &TooLargeError{flashSize, uint64(fsSize), avail}
	}
	eepromStart := FlashBase + flashSize - EEPROMSize
	return &Layout{
		FlashSize:   flashSize,
		FlashLength: uint32(avail),
		EEPROMStart: eepromStart,
		FSStart:     eepromStart - fsSize,
		FSEnd:       eepromStart,
		FSPage:      FSPage,
		FSBlock:     FSBlock,
	}, nil
}

// FSSize returns the size of the filesystem area.
func (l *Layout) FSSize() uint32 {
	return l.FSEnd - l.FSStart
}

func mb(n uint32) float64 {
	return float64(n) / 1024 / 1024
}

// Summary writes a human readable description of the layout to w.
func (l *Layout) Summary(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Flash size: %.2fMB\n"+
			"Sketch size: %.2fMB\n"+
			"Filesystem size: %.2fMB\n"+
			"Maximum size: %d Flash Length: %d EEPROM Start: %#x"+
			" Filesystem start: %#x Filesystem end: %#x\n",
		mb(l.FlashSize), mb(l.FlashLength), mb(l.FSSize()),
		l.FlashLength, l.FlashLength, l.EEPROMStart, l.FSStart, l.FSEnd,
	)
	return err
}
