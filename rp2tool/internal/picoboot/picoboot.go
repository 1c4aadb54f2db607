// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package picoboot talks to the boot ROM of RP2040/RP2350 devices in BOOTSEL
// mode using the PICOBOOT USB interface.
package picoboot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	usb "github.com/google/gousb"
)

const (
	Vendor        usb.ID = 0x2e8a
	ProductRP2040 usb.ID = 0x0003
	ProductRP2350 usb.ID = 0x000f
)

const magic uint32 = 0x431fd10b

const (
	cmdExclusiveAccess uint8 = 0x01
	cmdReboot          uint8 = 0x02
	cmdRead            uint8 = 0x84
	cmdReboot2         uint8 = 0x0a
)

// Chip identifies the device family.
type Chip uint8

const (
	UnknownChip Chip = iota
	RP2040
	RP2350
)

func (c Chip) String() string {
	switch c {
	case RP2040:
		return "RP2040"
	case RP2350:
		return "RP2350"
	}
	return "unknown"
}

// MCU returns the chip name in the form used by the board manifests.
func (c Chip) MCU() string {
	return strings.ToLower(c.String())
}

func chipOf(product usb.ID) Chip {
	switch product {
	case ProductRP2040:
		return RP2040
	case ProductRP2350:
		return RP2350
	}
	return UnknownChip
}

type Error struct {
	Op  string
	Err error
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return "picoboot: " + e.Op + ": " + e.Err.Error()
}

func wrapErr(op string, err *error) {
	if *err != nil {
		*err = &Error{op, *err}
	}
}

var (
	ErrNoDevice   = errors.New("no USB devices in BOOTSEL mode were found")
	ErrManyDevice = errors.New("found more than one USB device in BOOTSEL mode")
)

// ParseBusAddr parses the BUS:DEV USB address. It returns -1, -1 for
// malformed addresses.
func ParseBusAddr(busAddr string) (bus, dev int) {
	s := strings.Split(busAddr, ":")
	if len(s) != 2 {
		return -1, -1
	}
	b, err := strconv.ParseUint(s[0], 10, 8)
	if err != nil {
		return -1, -1
	}
	d, err := strconv.ParseUint(s[1], 10, 8)
	if err != nil {
		return -1, -1
	}
	return int(b), int(d)
}

// Conn is an open PICOBOOT connection.
type Conn struct {
	Chip Chip
	Bus  int
	Addr int

	usbCtx   *usb.Context
	oe       *usb.OutEndpoint
	ie       *usb.InEndpoint
	cmdBuf   [32]byte
	token    uint32
	readSpec [2]uint32
}

// Connect connects to the device in BOOTSEL mode. The busAddr selects the
// device by its BUS:DEV address. If busAddr is empty the only PICOBOOT device
// on the bus is used.
func Connect(busAddr string) (conn *Conn, err error) {
	defer wrapErr("Connect", &err)
	bus, addr := ParseBusAddr(busAddr)
	if busAddr != "" && bus < 0 {
		return nil, errors.New("bad USB device address: " + busAddr)
	}
	ctx := usb.NewContext()
	var cn, in, an int
	devs, err := ctx.OpenDevices(func(desc *usb.DeviceDesc) bool {
		if bus >= 0 && (desc.Bus != bus || desc.Address != addr) {
			return false
		}
		if desc.Vendor != Vendor || chipOf(desc.Product) == UnknownChip {
			return false
		}
		for _, cfg := range desc.Configs {
			for _, id := range cfg.Interfaces {
				for _, is := range id.AltSettings {
					if is.Class == 0xff && is.SubClass == 0 && is.Protocol == 0 {
						cn, in, an = cfg.Number, id.Number, is.Alternate
						return true
					}
				}
			}
		}
		return false
	})
	defer func() {
		if err != nil {
			for _, d := range devs {
				d.Close()
			}
			ctx.Close()
		}
	}()
	if err != nil {
		return nil, err
	}
	switch len(devs) {
	case 0:
		return nil, ErrNoDevice
	case 1:
	default:
		return nil, ErrManyDevice
	}
	dev := devs[0]
	dev.SetAutoDetach(true)
	cfg, err := dev.Config(cn)
	if err != nil {
		return nil, err
	}
	intf, err := cfg.Interface(in, an)
	if err != nil {
		return nil, err
	}
	if len(intf.Setting.Endpoints) != 2 {
		return nil, errors.New("want exactly two USB bulk endpoints")
	}
	var rxn, txn int
	for _, ed := range intf.Setting.Endpoints {
		if ed.Direction == usb.EndpointDirectionIn {
			rxn = ed.Number
		} else {
			txn = ed.Number
		}
	}
	if rxn == 0 || txn == 0 {
		return nil, errors.New("missing USB bulk endpoint")
	}
	ie, err := intf.InEndpoint(rxn)
	if err != nil {
		return nil, err
	}
	oe, err := intf.OutEndpoint(txn)
	if err != nil {
		return nil, err
	}
	conn = &Conn{
		Chip:   chipOf(dev.Desc.Product),
		Bus:    dev.Desc.Bus,
		Addr:   dev.Desc.Address,
		usbCtx: ctx,
		oe:     oe,
		ie:     ie,
	}
	binary.LittleEndian.AppendUint32(conn.cmdBuf[:0], magic)
	return conn, nil
}

func (c *Conn) Close() (err error) {
	err = c.usbCtx.Close()
	wrapErr("Close", &err)
	return
}

// command encodes the 32-byte PICOBOOT command into buf.
func command(buf []byte, token uint32, id uint8, transferLength int, args any) ([]byte, error) {
	argSize := binary.Size(args)
	if uint(argSize) > 16 {
		return nil, errors.New("wrong args size")
	}
	le := binary.LittleEndian
	buf = le.AppendUint32(buf[:0], magic)
	buf = le.AppendUint32(buf, token)
	buf = append(buf, id, uint8(argSize), 0, 0)
	buf = le.AppendUint32(buf, uint32(transferLength))
	buf, err := binary.Append(buf, le, args)
	if err != nil {
		return nil, err
	}
	n := len(buf)
	buf = buf[:32]
	clear(buf[n:])
	return buf, nil
}

func (c *Conn) writeCmd(id uint8, transferLength int, args any) error {
	buf, err := command(c.cmdBuf[:], c.token, id, transferLength, args)
	if err != nil {
		return err
	}
	c.token++
	_, err = c.oe.Write(buf)
	return err
}

// SetExclusiveAccess locks out the USB mass storage interface of the device.
func (c *Conn) SetExclusiveAccess(ea bool) (err error) {
	defer wrapErr("SetExclusiveAccess", &err)
	var arg uint8
	if ea {
		arg = 1
	}
	if err = c.writeCmd(cmdExclusiveAccess, 0, &arg); err != nil {
		return
	}
	_, err = c.ie.Read(nil)
	return
}

func (c *Conn) SetReadAddr(addr uint32) {
	c.readSpec[0] = addr
}

// Read reads len(p) bytes of the device memory starting just after the last
// read address (see also SetReadAddr).
func (c *Conn) Read(p []byte) (n int, err error) {
	defer wrapErr("Read", &err)
	c.readSpec[1] = uint32(len(p))
	if err = c.writeCmd(cmdRead, len(p), &c.readSpec); err != nil {
		return
	}
	n, err = io.ReadFull(c.ie, p)
	if err != nil {
		return
	}
	c.readSpec[0] += uint32(n)
	_, err = c.oe.Write(nil)
	return
}

// Reboot reboots the device into the application after delayMs milliseconds.
func (c *Conn) Reboot(delayMs uint32) (err error) {
	defer wrapErr("Reboot", &err)
	if c.Chip == RP2350 {
		// flags=0: normal boot
		args := [4]uint32{0, delayMs, 0, 0}
		err = c.writeCmd(cmdReboot2, 0, &args)
	} else {
		// pc=0, sp=0: boot from flash
		args := [3]uint32{0, 0, delayMs}
		err = c.writeCmd(cmdReboot, 0, &args)
	}
	if err != nil {
		return
	}
	_, err = c.ie.Read(nil)
	return
}

// ROM header of the boot ROM.
const romHeaderAddr = 0x10

// ROMInfo describes the boot ROM of the connected device.
type ROMInfo struct {
	Chip    Chip
	Version uint8
}

func (i ROMInfo) String() string {
	return fmt.Sprintf("%s (boot ROM version %d)", i.Chip, i.Version)
}

// parseROMHeader decodes the 4-byte header: 'M', 'u', chip, version.
func parseROMHeader(h []byte) (ROMInfo, error) {
	if len(h) < 4 || h[0] != 'M' || h[1] != 'u' {
		return ROMInfo{}, fmt.Errorf("bad boot ROM header % x", h)
	}
	var c Chip
	switch h[2] {
	case 1:
		c = RP2040
	case 2:
		c = RP2350
	default:
		return ROMInfo{}, fmt.Errorf("unknown chip %d in boot ROM header", h[2])
	}
	return ROMInfo{Chip: c, Version: h[3]}, nil
}

// ROMInfo reads and decodes the boot ROM header.
func (c *Conn) ROMInfo() (ROMInfo, error) {
	var h [4]byte
	c.SetReadAddr(romHeaderAddr)
	if _, err := c.Read(h[:]); err != nil {
		return ROMInfo{}, err
	}
	info, err := parseROMHeader(h[:])
	if err != nil {
		return info, &Error{"ROMInfo", err}
	}
	return info, nil
}
