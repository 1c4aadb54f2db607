// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package image converts the linked program (ELF) to the images accepted by
// the RP2040/RP2350 loaders.
package image

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/golang/glog"
)

type Section struct {
	Name  string
	Vaddr uint64 // address in the memory during execution
	Paddr uint64 // phisical location of the section in the Flash/ROM
	Data  []byte // section data
}

type Sections []*Section

// ReadELF reads the loadable sections of the program and returns them as
// a slice. The order of the returned sections is unspecified.
func ReadELF(name string) (Sections, error) {
	f, err := elf.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ss := make(Sections, 0, 16)
	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		paddr := s.Addr
		for _, p := range f.Progs {
			if p.Type != elf.PT_LOAD {
				continue
			}
			if p.Off <= s.Offset && s.Offset < p.Off+p.Filesz {
				paddr = p.Paddr + s.Offset - p.Off
				break
			}
		}
		glog.V(2).Infof("readelf: %s vaddr=%#x paddr=%#x size=%d", s.Name, s.Addr, paddr, len(data))
		ss = append(ss, &Section{s.Name, s.Addr, paddr, data})
	}
	return ss, nil
}

// Size returns the total size of the section data.
func (ss Sections) Size() int {
	n := 0
	for _, s := range ss {
		n += len(s.Data)
	}
	return n
}

// SortByPaddr sorts sections according to the Paddr field.
func (ss Sections) SortByPaddr() {
	sort.Slice(
		ss,
		func(i, j int) bool {
			return ss[i].Paddr < ss[j].Paddr
		},
	)
}

var ErrOverlap = errors.New("flatten: overlaping sections")

// Flatten flattens sections by writting their data to the provided io.Writer
// according to the Paddr field (before writting the sections are sorted using
// SortPaddr method). The gaps between sections are filled using the pad byte.
func (ss Sections) Flatten(w io.Writer, pad byte) (n int, err error) {
	if len(ss) == 0 {
		return
	}
	ss.SortByPaddr()
	pa := ss[0].Paddr
	var padCache []byte
	for i, s := range ss {
		if i != 0 {
			if s.Paddr < pa {
				return n, ErrOverlap
			}
			if gap := int(s.Paddr - pa); gap != 0 {
				m, err := w.Write(PadBytes(&padCache, gap, pad))
				n += m
				pa += uint64(m)
				if err != nil {
					return n, err
				}
			}
		}
		m, err := w.Write(s.Data)
		n += m
		pa += uint64(m)
		if err != nil {
			return n, err
		}
	}
	return
}

// PadBytes returns the slice containing n bytes equal b.
func PadBytes(cache *[]byte, n int, b byte) []byte {
	if cache == nil {
		cache = new([]byte)
	}
	if len(*cache) < n {
		*cache = make([]byte, n)
		for i := range *cache {
			(*cache)[i] = b
		}
	}
	return (*cache)[:n]
}

// Size rules of the arm-none-eabi-size based size check.
var (
	progSections = []string{".text", ".data", ".rodata", ".text.align", ".ARM.exidx"}
	dataSections = []string{".data", ".bss", ".noinit"}
)

// ProgramSize returns the number of bytes the program occupies in the Flash
// and in the RAM.
func ProgramSize(name string) (prog, data uint64, err error) {
	f, err := elf.Open(name)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	for _, n := range progSections {
		if s := f.Section(n); s != nil {
			prog += s.Size
		}
	}
	for _, n := range dataSections {
		if s := f.Section(n); s != nil {
			data += s.Size
		}
	}
	return
}

// SizeError is returned by CheckSize if the program doesn't fit in the
// available flash space.
type SizeError struct {
	Size, Max uint64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("program size %d bytes exceeds maximum %d bytes", e.Size, e.Max)
}

// CheckSize returns *SizeError if the program size exceeds max.
func CheckSize(name string, max uint32) (prog, data uint64, err error) {
	prog, data, err = ProgramSize(name)
	if err == nil && prog > uint64(max) {
		err = &SizeError{prog, uint64(max)}
	}
	return
}
