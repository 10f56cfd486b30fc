// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package honda

import "fmt"

// ECUState is the tagged outcome of DetectState (spec.md §3).
type ECUState int

const (
	StateOFF ECUState = iota
	StateUnknown
	StateOK
	StateFlash
	StateSecure
	StateRecoverOld
	StateRecoverNew
)

func (s ECUState) String() string {
	switch s {
	case StateOFF:
		return "OFF"
	case StateUnknown:
		return "UNKNOWN"
	case StateOK:
		return "OK"
	case StateFlash:
		return "FLASH"
	case StateSecure:
		return "SECURE"
	case StateRecoverOld:
		return "RECOVER_OLD"
	case StateRecoverNew:
		return "RECOVER_NEW"
	default:
		return fmt.Sprintf("ECUState(%d)", int(s))
	}
}

// DetectState implements the decision tree from spec.md §4.3.
//
// It temporarily forces the adapter's retry count to 0 for the duration of
// the probe, then restores it. Unlike the Python original (flagged as an
// open bug in spec.md §9), the restore always runs — it is not nested
// inside the dead-line branch — and a dead line that matches neither FLASH
// nor SECURE explicitly returns StateOFF rather than falling through to a
// null result.
func (e *ECU) DetectState() ECUState {
	prevRetries := e.t.Adapter().SetRetries(0)
	defer e.t.Adapter().SetRetries(prevRetries)

	if e.t.Adapter().KlinePing() {
		return e.detectLiveLine()
	}
	return e.detectDeadLine()
}

// detectLiveLine implements the electrically-alive half of DetectState
// (spec.md §4.3). Note this resolves an inconsistency between the
// original Python (_examples/original_source/eculib/honda.py), which
// returns OK precisely when the table query gets *no* response at all and
// leaves the state at UNKNOWN when it gets a nonzero, healthy-looking
// reply, and spec.md §4.3's prose, which describes the sensible inverse
// (nonzero table id means the ECU answered in a healthy state -> OK). The
// prose is followed here since it is spec.md's explicit, unambiguous text
// rather than a silence this repo has to resolve by deferring to the
// original.
func (e *ECU) detectLiveLine() ECUState {
	// Two inits tolerate a missed first break pulse.
	e.Init()
	e.Init()
	e.Ping()

	t0, err := e.t.SendCommand([]byte{0x72}, []byte{0x71, 0x00})
	if err != nil || t0 == nil {
		return StateUnknown
	}
	// Reply data positions [5:7], directly against ReplyData the way the
	// original indexes t0[2][5:7] (spec.md §4.3).
	tableBytes := replyDataSlice(t0, 5, 7)
	if tableBytes == nil || (tableBytes[0] == 0 && tableBytes[1] == 0) {
		if d3, _ := e.t.SendCommand([]byte{0x7D}, []byte{0x01, 0x01, 0x03}); d3 != nil {
			return StateRecoverOld
		}
		if b4, _ := e.t.SendCommand([]byte{0x7B}, []byte{0x00, 0x01, 0x04}); b4 != nil {
			return StateRecoverNew
		}
		return StateUnknown
	}
	return StateOK
}

func (e *ECU) detectDeadLine() ECUState {
	if w0, _ := e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x01, 0x00}); w0 != nil {
		return StateFlash
	}
	if s10, _ := e.t.SendCommand([]byte{0x82, 0x82, 0x10}, []byte{0x00}); s10 != nil {
		return StateSecure
	}
	return StateOFF
}

// replyDataSlice extracts r.ReplyData[lo:hi], returning nil if that would
// be out of range rather than panicking on a short reply.
func replyDataSlice(r *Response, lo, hi int) []byte {
	if lo < 0 || hi > len(r.ReplyData) || lo > hi {
		return nil
	}
	return r.ReplyData[lo:hi]
}
