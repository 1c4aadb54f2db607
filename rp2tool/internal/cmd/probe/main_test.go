// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package probe

import (
	"testing"

	"github.com/rp2tools/rp2plat/rp2tool/internal/picoboot"
)

func TestCheckChip(t *testing.T) {
	rp2040 := picoboot.ROMInfo{Chip: picoboot.RP2040, Version: 3}
	for _, mcu := range []string{"", "rp2040", "RP2040"} {
		if err := checkChip(rp2040, mcu); err != nil {
			t.Errorf("checkChip(rp2040, %q): %v", mcu, err)
		}
	}
	if err := checkChip(rp2040, "rp2350"); err == nil {
		t.Error("checkChip(rp2040, rp2350): no error")
	}
}
