// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package serialport finds the serial port of the board and resets it into
// the bootloader.
package serialport

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/albenik/go-serial/v2"
	"github.com/albenik/go-serial/v2/enumerator"
	"github.com/golang/glog"
)

// RaspberryPiVID is the USB vendor ID of the Raspberry Pi devices.
const RaspberryPiVID = "2E8A"

type Port struct {
	Name   string
	IsUSB  bool
	VID    string
	PID    string
	Serial string
}

// Lister lists the serial ports available in the system.
type Lister interface {
	List() ([]Port, error)
}

// System lists the serial ports using the OS specific enumerator.
type System struct{}

func (System) List() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]Port, len(details))
	for i, d := range details {
		ports[i] = Port{
			Name:   d.Name,
			IsUSB:  d.IsUSB,
			VID:    d.VID,
			PID:    d.PID,
			Serial: d.SerialNumber,
		}
	}
	return ports, nil
}

var ErrNotFound = errors.New("no serial port found")

// Pick selects the most likely port of the board: the first Raspberry Pi USB
// device, otherwise the first USB serial port.
func Pick(ports []Port) (string, error) {
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, RaspberryPiVID) {
			return p.Name, nil
		}
	}
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	return "", ErrNotFound
}

// Autodetect lists the ports using l and picks the port of the board.
func Autodetect(l Lister) (string, error) {
	ports, err := l.List()
	if err != nil {
		return "", err
	}
	return Pick(ports)
}

// Touch opens the port using the specified baud rate and closes it
// immediately. Opening the port at 1200 bps resets the RP2040/RP2350 Arduino
// style firmware into the bootloader.
func Touch(name string, baud int) error {
	glog.V(1).Infof("touching %s at %d bps", name, baud)
	p, err := serial.Open(
		name,
		serial.WithBaudrate(baud),
		serial.WithDataBits(8),
	)
	if err != nil {
		return err
	}
	return p.Close()
}

// PollInterval is the period of port list polling in WaitForNew.
var PollInterval = 250 * time.Millisecond

// WaitForNew waits up to timeout for a port that isn't on the before list.
// If no new port appears but the old port is still (or again) present, the
// old port is returned.
func WaitForNew(ctx context.Context, l Lister, before []Port, old string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(PollInterval)
	defer tick.Stop()
	var last []Port
	for {
		ports, err := l.List()
		if err != nil {
			return "", err
		}
		last = ports
		for _, p := range ports {
			if !slices.ContainsFunc(before, func(b Port) bool { return b.Name == p.Name }) {
				glog.V(1).Infof("new serial port: %s", p.Name)
				return p.Name, nil
			}
		}
		select {
		case <-ctx.Done():
			if old != "" && slices.ContainsFunc(last, func(p Port) bool { return p.Name == old }) {
				return old, nil
			}
			return "", errors.New("couldn't find a board on the selected port, check that the board is connected")
		case <-tick.C:
		}
	}
}
