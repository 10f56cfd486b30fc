// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package usbftdi implements kline.Handle on top of a real FTDI USB
// adapter using github.com/google/gousb (a cgo-free libusb binding),
// issuing the FTDI SIO vendor control requests directly rather than
// linking against the proprietary D2XX library.
//
// This plays the same role in this repo that hostextra/d2xx plays in the
// teacher: a concrete, OS-level backing for an abstract device handle
// interface. The teacher gets there via cgo calls into FTD2XX.dll/.so;
// _examples/original_source/eculib/base.py got there via pyftdi, which is
// itself a libusb client. usbftdi follows the pyftdi/libusb route, because
// gousb (already a dependency of this corpus, see
// experimental/host/usbbus/usbbus.go) is the teacher pack's libusb
// binding, and unlike D2XX it needs no proprietary driver or cgo.
package usbftdi

import (
	"fmt"
	"strings"

	"github.com/google/gousb"

	"github.com/PhatDatPQ/eculib/kline"
)

// FTDI SIO vendor request numbers (bRequest), from the public FTDI USB
// vendor protocol used by libftdi/pyftdi.
const (
	sioReset       = 0x00
	sioSetBaudrate = 0x03
	sioSetData     = 0x04
	sioSetBitmode  = 0x0B
)

// SIO_RESET wValue sub-commands.
const (
	resetPurgeR = 1
	resetPurgeW = 2
)

const reqTypeOut = 0x40 // vendor, host-to-device, device recipient

// Handle implements kline.Handle against a real FTDI device claimed
// through gousb.
type Handle struct {
	dev   *gousb.Device
	done  func()
	in    *gousb.InEndpoint
	out   *gousb.OutEndpoint
	index uint16 // FTDI interface index; 1 for single-channel devices
}

// Open claims the default interface of dev and locates its bulk IN/OUT
// endpoints, the same interface-claiming dance as usbbus.scanDevices
// (experimental/host/usbbus/usbbus.go).
func Open(dev *gousb.Device) (*Handle, error) {
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		return nil, fmt.Errorf("usbftdi: DefaultInterface: %w", err)
	}
	h := &Handle{dev: dev, done: done, index: 1}
	for _, es := range intf.Setting.Endpoints {
		if es.Direction == gousb.EndpointDirectionIn && h.in == nil {
			if in, err := intf.InEndpoint(es.Number); err == nil {
				h.in = in
			}
		}
		if es.Direction == gousb.EndpointDirectionOut && h.out == nil {
			if out, err := intf.OutEndpoint(es.Number); err == nil {
				h.out = out
			}
		}
	}
	if h.in == nil || h.out == nil {
		done()
		return nil, fmt.Errorf("usbftdi: no bulk endpoint pair found")
	}
	return h, nil
}

func (h *Handle) vendorOut(request uint8, value uint16) error {
	_, err := h.dev.Control(reqTypeOut, request, value, h.index, nil)
	return classify(err)
}

// Write implements kline.Handle.
func (h *Handle) Write(b []byte) (int, error) {
	n, err := h.out.Write(b)
	return n, classify(err)
}

// Read implements kline.Handle. It returns whatever a single bulk-read
// call yields, status bytes included; stripping them is transport's job
// (spec.md §4.2), not this layer's.
func (h *Handle) Read() ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := h.in.Read(buf)
	if err != nil {
		return nil, classify(err)
	}
	return buf[:n], nil
}

// Purge drops both RX and TX buffers at the device.
func (h *Handle) Purge() error {
	if err := h.vendorOut(sioReset, resetPurgeR); err != nil {
		return err
	}
	return h.vendorOut(sioReset, resetPurgeW)
}

// SetBitMode implements kline.Handle's bit-bang mode switch.
func (h *Handle) SetBitMode(mask, mode byte) error {
	return h.vendorOut(sioSetBitmode, uint16(mode)<<8|uint16(mask))
}

// SetLineProperty implements kline.Handle. parity is 'N', 'O', or 'E'.
func (h *Handle) SetLineProperty(dataBits, stopBits int, parity byte) error {
	var p uint16
	switch parity {
	case 'O':
		p = 1
	case 'E':
		p = 2
	}
	var sb uint16
	if stopBits == 2 {
		sb = 2
	}
	value := uint16(dataBits) | p<<8 | sb<<11
	return h.vendorOut(sioSetData, value)
}

// SetBaudRate implements kline.Handle using the standard FTDI base-clock
// divisor encoding (base clock 3,000,000Hz for the common chips this
// library targets).
func (h *Handle) SetBaudRate(hz int) error {
	value, index := ftdiBaudDivisor(hz)
	_, err := h.dev.Control(reqTypeOut, sioSetBaudrate, value, index|h.index, nil)
	return classify(err)
}

// Close releases the claimed interface and the device.
func (h *Handle) Close() error {
	h.done()
	return h.dev.Close()
}

// ftdiBaudDivisor computes the (value, index) control-request pair FTDI
// chips expect for a given target baud rate, using the classic 3MHz/8
// fractional divisor table ({0, 3, 2, 4, 1, 5, 6, 7} eighths).
func ftdiBaudDivisor(hz int) (value, index uint16) {
	const clock = 3000000
	if hz <= 0 {
		hz = 10400
	}
	divisor8 := (clock*8 + hz/2) / hz
	divisor := divisor8 >> 3
	frac := [8]uint16{0, 3, 2, 4, 1, 5, 6, 7}[divisor8&7]
	value = uint16(divisor) | (frac << 14)
	if frac >= 4 {
		index = 1
	}
	return value, index
}

// classify maps a gousb transport error into the kline error taxonomy
// (spec.md §7). gousb surfaces libusb failures as plain Go errors rather
// than POSIX errno, so there is no structured number to recover the way
// the Python original tried to (by string-splitting an exception
// message) — Errno is left at 0 here, matching spec.md §9's guidance to
// use a structured field instead of a parsed one, populated with
// whatever is actually available.
func classify(err error) error {
	if err == nil {
		return nil
	}
	// libusb reports a busy device/endpoint and in-flight timeouts as
	// plain strings rather than a typed sentinel; match on them so a
	// transient condition retries instead of aborting the operation.
	msg := err.Error()
	if strings.Contains(msg, "busy") || strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout") {
		return kline.UsbBusyError{}
	}
	return kline.UsbError{Errno: 0, Strerror: msg}
}
