// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcinbor85/gohex"
)

func testSections() Sections {
	return Sections{
		{Name: ".data", Paddr: 0x1000_0010, Data: []byte{5, 6}},
		{Name: ".text", Paddr: 0x1000_0000, Data: []byte{1, 2, 3, 4}},
	}
}

func TestFlatten(t *testing.T) {
	var buf bytes.Buffer
	n, err := testSections().Flatten(&buf, Pad)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4}
	for range 12 {
		want = append(want, Pad)
	}
	want = append(want, 5, 6)
	if n != len(want) {
		t.Errorf("n = %d, want %d", n, len(want))
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got % x\nwant % x", buf.Bytes(), want)
	}
}

func TestFlattenOverlap(t *testing.T) {
	ss := Sections{
		{Paddr: 0x100, Data: []byte{1, 2, 3, 4}},
		{Paddr: 0x102, Data: []byte{5}},
	}
	_, err := ss.Flatten(new(bytes.Buffer), Pad)
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("err = %v, want ErrOverlap", err)
	}
}

func TestWriteHex(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHex(&buf, testSections()); err != nil {
		t.Fatal(err)
	}
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(&buf); err != nil {
		t.Fatal(err)
	}
	segs := mem.GetDataSegments()
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Address != 0x1000_0000 || !bytes.Equal(segs[0].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("segment 0 = %#x % x", segs[0].Address, segs[0].Data)
	}
	if segs[1].Address != 0x1000_0010 || !bytes.Equal(segs[1].Data, []byte{5, 6}) {
		t.Errorf("segment 1 = %#x % x", segs[1].Address, segs[1].Data)
	}
}

func TestWriteUF2(t *testing.T) {
	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}
	ss := Sections{{Name: ".text", Paddr: 0x1000_0000, Data: data}}
	var buf bytes.Buffer
	if err := WriteUF2(&buf, ss, FamilyRP2040); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 3*512 {
		t.Fatalf("len = %d, want %d", buf.Len(), 3*512)
	}
	le := binary.LittleEndian
	for i := range 3 {
		b := buf.Bytes()[i*512:]
		if le.Uint32(b[0:]) != 0x0a324655 || le.Uint32(b[4:]) != 0x9e5d5157 || le.Uint32(b[508:]) != 0x0ab16f30 {
			t.Errorf("block %d: bad magic", i)
		}
		if flags := le.Uint32(b[8:]); flags != UF2FamilyIDPresent {
			t.Errorf("block %d: flags = %#x", i, flags)
		}
		if addr := le.Uint32(b[12:]); addr != 0x1000_0000+uint32(i)*256 {
			t.Errorf("block %d: addr = %#x", i, addr)
		}
		if seq, total := le.Uint32(b[20:]), le.Uint32(b[24:]); seq != uint32(i) || total != 3 {
			t.Errorf("block %d: seq/total = %d/%d", i, seq, total)
		}
		if fam := le.Uint32(b[28:]); fam != FamilyRP2040 {
			t.Errorf("block %d: family = %#x", i, fam)
		}
	}
	if got := buf.Bytes()[2*512+32]; got != data[512] {
		t.Errorf("first byte of the last block = %d, want %d", got, data[512])
	}
}

func TestFamily(t *testing.T) {
	tests := map[string]uint32{
		"rp2040":       FamilyRP2040,
		"RP2040":       FamilyRP2040,
		"rp2350":       FamilyRP2350ARMS,
		"rp2350-riscv": FamilyRP2350RISCV,
	}
	for mcu, want := range tests {
		if got := Family(mcu); got != want {
			t.Errorf("Family(%q) = %#x, want %#x", mcu, got, want)
		}
	}
}

func TestParseFamily(t *testing.T) {
	for s, want := range map[string]uint32{
		"rp2040":       FamilyRP2040,
		"RP2350-ARM-S": FamilyRP2350ARMS,
		"0xe48bff5b":   FamilyRP2350ARMNS,
		"42":           42,
	} {
		if got, err := ParseFamily(s); err != nil || got != want {
			t.Errorf("ParseFamily(%q) = %#x, %v", s, got, err)
		}
	}
	if _, err := ParseFamily("pico"); err == nil {
		t.Error("ParseFamily(pico): no error")
	}
}

func TestRawToUF2(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "littlefs.bin")
	data := bytes.Repeat([]byte{0xa5}, 300)
	if err := os.WriteFile(in, data, 0o666); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "littlefs.uf2")
	if err := RawToUF2(in, out, 0x100ff000, FamilyAbsolute); err != nil {
		t.Fatal(err)
	}
	uf2, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(uf2) != 2*512 {
		t.Fatalf("UF2 size = %d, want 2 blocks", len(uf2))
	}
	le := binary.LittleEndian
	for i, addr := range []uint32{0x100ff000, 0x100ff100} {
		b := uf2[i*512:]
		if got := le.Uint32(b[12:]); got != addr {
			t.Errorf("block %d: addr = %#x, want %#x", i, got, addr)
		}
		if got := le.Uint32(b[24:]); got != 2 {
			t.Errorf("block %d: total = %d", i, got)
		}
		if got := le.Uint32(b[28:]); got != FamilyAbsolute {
			t.Errorf("block %d: family = %#x", i, got)
		}
	}
	if FSFamily("rp2040") != FamilyRP2040 || FSFamily("rp2350") != FamilyAbsolute {
		t.Error("FSFamily")
	}
	if err := os.WriteFile(in, nil, 0o666); err != nil {
		t.Fatal(err)
	}
	if err := RawToUF2(in, out, 0x100ff000, FamilyAbsolute); err == nil {
		t.Error("RawToUF2: no error for an empty image")
	}
}

func TestConvertNotELF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "firmware.elf")
	if err := os.WriteFile(in, []byte("not an ELF file"), 0o666); err != nil {
		t.Fatal(err)
	}
	if err := Convert(in, filepath.Join(dir, "firmware.hex"), Hex, 0); err == nil {
		t.Error("Convert: no error for a bad ELF file")
	}
	if _, _, err := ProgramSize(in); err == nil {
		t.Error("ProgramSize: no error for a bad ELF file")
	}
}
