// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package transport builds Honda K-Line diagnostic frames and drives the
// request/response exchange over a kline.Adapter: one bounded send/receive
// (send) plus a retrying, reply-validating wrapper (SendCommand).
//
// Frame layout and the Honda 8-bit checksum are grounded on
// _examples/original_source/eculib/honda.py's format_message and
// checksum8bitHonda, restated in spec.md §4.2/§6.
package transport

// Frame is a built Honda wire frame: mtype(1..3B) | total_len(1B) |
// data(0..N B) | checksum(1B).
type Frame []byte

// MessageType returns the leading message-type bytes of the frame.
func (f Frame) MessageType(mtypeLen int) []byte { return f[:mtypeLen] }

// TotalLen returns the frame's declared total length byte, which sits
// immediately after the message type.
func (f Frame) TotalLen(mtypeLen int) byte { return f[mtypeLen] }

// Data returns the frame's payload, excluding message type, length byte,
// and trailing checksum.
func (f Frame) Data(mtypeLen int) []byte { return f[mtypeLen+1 : len(f)-1] }

// Checksum returns the frame's trailing checksum byte.
func (f Frame) Checksum() byte { return f[len(f)-1] }

// Checksum8BitHonda computes the Honda two's-complement checksum over b:
// the sum of all bytes in b, two's-complemented and truncated to 8 bits.
// A frame is valid iff appending its own checksum makes the total sum 0
// mod 256 (spec.md §4.2, §8).
func Checksum8BitHonda(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return (sum ^ 0xFF) + 1
}

// FormatMessage builds a wire frame from a message type (1..3 bytes) and a
// data payload (0..N bytes), appending the length byte and checksum.
//
// Invariant: frame[len(mtype)] == total_len, and the 8-bit sum of the
// whole frame is 0 (spec.md §8).
func FormatMessage(mtype, data []byte) Frame {
	totalLen := 2 + len(mtype) + len(data)
	msg := make([]byte, 0, totalLen+1)
	msg = append(msg, mtype...)
	msg = append(msg, byte(totalLen))
	msg = append(msg, data...)
	msg = append(msg, Checksum8BitHonda(msg))
	return Frame(msg)
}

// ValidateChecksums checks whether byts is a valid Honda frame and,
// if cksumIdx is a valid in-range checksum position, rewrites byts[cksumIdx]
// to the value that would make it valid ("fixed"). This is the
// do_validation/validate_checksums helper from honda.py, carried over as
// a standalone debug utility (SPEC_FULL.md §4.3) rather than wired into
// SendCommand's own hot path, exactly as in the original.
//
// It returns (ok, fixed): ok reports whether byts validates (after any
// fix), fixed reports whether byts was rewritten.
func ValidateChecksums(byts []byte, cksumIdx int) (ok, fixed bool) {
	if cksumIdx >= 0 && cksumIdx < len(byts) {
		without := make([]byte, 0, len(byts)-1)
		without = append(without, byts[:cksumIdx]...)
		without = append(without, byts[cksumIdx+1:]...)
		byts[cksumIdx] = Checksum8BitHonda(without)
		fixed = true
	}
	return Checksum8BitHonda(byts) == 0, fixed
}
