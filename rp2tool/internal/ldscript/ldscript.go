// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ldscript generates the linker script fragment that describes the
// flash region available for the program.
package ldscript

import (
	"io"
	"text/template"

	"github.com/rp2tools/rp2plat/rp2tool/internal/partition"
)

const tmplText = `/* Generated by rp2tool. DO NOT EDIT. */

MEMORY
{
    FLASH(rx) : ORIGIN = {{hex .Origin}}, LENGTH = {{.FlashLength}}
}

PROVIDE(__FLASH_LENGTH__ = {{.FlashLength}});
PROVIDE(__EEPROM_START__ = {{hex .EEPROMStart}});
PROVIDE(__FS_START__ = {{hex .FSStart}});
PROVIDE(__FS_END__ = {{hex .FSEnd}});
`

var tmpl = template.Must(template.New("ld").Funcs(template.FuncMap{
	"hex": func(v uint32) string {
		const digits = "0123456789abcdef"
		buf := []byte("0x00000000")
		for i := len(buf) - 1; i >= 2; i-- {
			buf[i] = digits[v&0xf]
			v >>= 4
		}
		return string(buf)
	},
}).Parse(tmplText))

type data struct {
	Origin uint32
	*partition.Layout
}

// Write writes the linker script fragment for the layout l to w.
func Write(w io.Writer, l *partition.Layout) error {
	return tmpl.Execute(w, data{partition.FlashBase, l})
}
