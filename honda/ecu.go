// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package honda implements the Honda PGM-FI ECU controller: the wake/init
// sequence, ping/diag, ECU state detection, DTC retrieval, the flash
// erase/program lifecycle, and the PGM-FI RAM/EEPROM/flash memory
// accessors (spec.md §4.3).
//
// honda depends on package transport, never the reverse, avoiding the
// cyclic base/Honda import the original Python package pair had
// (_examples/original_source/eculib/base.py importing from honda.py's
// perspective; spec.md §9).
package honda

import (
	"time"

	"github.com/PhatDatPQ/eculib/kline"
	"github.com/PhatDatPQ/eculib/transport"
)

// Response is an alias for transport.Response so callers working
// exclusively with package honda don't need to import transport directly
// for the return type of lower-level calls.
type Response = transport.Response

// ECU is the Honda PGM-FI controller. It borrows a *transport.Transport
// (and, through it, the underlying *kline.Adapter) exclusively for the
// duration of an operation sequence (spec.md §3 "Ownership").
type ECU struct {
	t *transport.Transport
}

// New wraps a Transport in an ECU controller.
func New(t *transport.Transport) *ECU { return &ECU{t: t} }

// Init performs the K-Line wake sequence (spec.md §4.3): bit-bang mode on
// bit 0, drive low 70ms, drive high 200ms, clear bit-bang mode, drain the
// RX buffer. It retries transparently on UsbBusyError (handled inside the
// Adapter's Write/SetBitMode) and aborts on any other error.
func (e *ECU) Init() error {
	a := e.t.Adapter()
	if err := a.SetBitMode(kline.BitModeAsyncBitbang, kline.BitModeAsyncBitbang); err != nil {
		return err
	}
	if _, err := a.Write([]byte{0x00}); err != nil {
		return err
	}
	time.Sleep(70 * time.Millisecond)
	if _, err := a.Write([]byte{0x01}); err != nil {
		return err
	}
	if err := a.SetBitMode(kline.BitModeReset, kline.BitModeReset); err != nil {
		return err
	}
	time.Sleep(200 * time.Millisecond)
	_, err := a.Read()
	return err
}

// PingOption configures Ping/Diag's mode byte (SPEC_FULL.md §4.3
// supplement: the original parameterizes these defaults, the distilled
// spec only states them).
type PingOption func(*pingConfig)

type pingConfig struct{ mode byte }

// WithMode overrides the default ping/diag mode byte.
func WithMode(mode byte) PingOption { return func(c *pingConfig) { c.mode = mode } }

// Ping sends mtype [0xFE] with the given mode (default 0x72) and reports
// whether a response arrived (spec.md §4.3).
func (e *ECU) Ping(opts ...PingOption) bool {
	c := pingConfig{mode: 0x72}
	for _, o := range opts {
		o(&c)
	}
	resp, err := e.t.SendCommand([]byte{0xFE}, []byte{c.mode})
	return err == nil && resp != nil
}

// Diag sends mtype [0x72] with data [0x00, mode] (default mode 0xF0) and
// reports whether a response arrived (spec.md §4.3).
func (e *ECU) Diag(opts ...PingOption) bool {
	c := pingConfig{mode: 0xF0}
	for _, o := range opts {
		o(&c)
	}
	resp, err := e.t.SendCommand([]byte{0x72}, []byte{0x00, c.mode})
	return err == nil && resp != nil
}

// DefaultTables is probe_tables' default list of PGM-FI table ids
// (spec.md §4.3), exported so callers can extend rather than replace it
// (SPEC_FULL.md §4.3 supplement).
var DefaultTables = []byte{
	0x10, 0x11, 0x13, 0x17, 0x20, 0x21, 0x60, 0x61, 0x63, 0x67, 0x70, 0x71, 0xD0, 0xD1,
}

// TableInfo is the (length, data) pair recorded for one PGM-FI table id.
type TableInfo struct {
	Length int
	Data   []byte
}

// ProbeTables queries each table id with mtype [0x72], data [0x71, id].
// A response whose data length exceeds 2 is recorded; if any table id
// fails outright, the accumulator is cleared and the probe aborts
// (spec.md §4.3). tables defaults to DefaultTables when nil.
func (e *ECU) ProbeTables(tables []byte) map[byte]TableInfo {
	if tables == nil {
		tables = DefaultTables
	}
	a := e.t.Adapter()
	prev := a.SetRetries(0)
	defer a.SetRetries(prev)

	ret := map[byte]TableInfo{}
	for _, id := range tables {
		info, err := e.t.SendCommand([]byte{0x72}, []byte{0x71, id})
		if err != nil || info == nil {
			return map[byte]TableInfo{}
		}
		if info.ReplyDataLen > 2 {
			ret[id] = TableInfo{Length: info.ReplyDataLen, Data: info.ReplyData}
		}
	}
	return ret
}
