// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package transport

import (
	"time"

	"github.com/PhatDatPQ/eculib/kline"
)

// Response is the parsed, validated reply to a Honda command
// (spec.md §3).
type Response struct {
	ReplyMType    []byte
	ReplyLength   byte
	ReplyData     []byte
	ReplyDataLen  int
}

// Transport builds Honda frames and drives the request/response exchange
// over a kline.Adapter. It holds no state of its own beyond the Adapter
// reference, mirroring spec.md §9's note that the Honda dialect must not
// cyclically depend on the adapter's own package: Transport depends on
// kline.Adapter, never the reverse.
type Transport struct {
	a *kline.Adapter
}

// New wraps an Adapter in a Transport.
func New(a *kline.Adapter) *Transport { return &Transport{a: a} }

// Adapter returns the underlying adapter, e.g. so callers can read Stats()
// or call KlinePing() directly.
func (t *Transport) Adapter() *kline.Adapter { return t.a }

// FormatMessage builds a wire frame; see package-level FormatMessage.
func (t *Transport) FormatMessage(mtype, data []byte) Frame { return FormatMessage(mtype, data) }

// send performs a single bounded request/response exchange: write the full
// frame, then read until the reply header plus its declared length have
// arrived, or the adapter's generic timeout elapses (spec.md §4.2).
//
// It returns (nil, nil) for "no response" (a short write, or a read that
// never completes within timeout) — not an error — matching the spec's
// silent-on-null design (spec.md §7). A non-nil error means a hard
// USB/FTDI failure already published to the Observer.
func (t *Transport) send(frame Frame, mtypeLen int) ([]byte, error) {
	n, err := t.a.Write(frame)
	if err != nil {
		return nil, err
	}
	if n != len(frame) {
		return nil, nil
	}

	timeout := t.a.Config().Timeout
	start := time.Now()
	buf := make([]byte, 0, len(frame)+mtypeLen+16)

	// Phase A: collect the echo of our request, the reply's mtype, and
	// its length byte.
	need := len(frame) + mtypeLen + 1
	for len(buf) < need {
		chunk, err := t.a.Read()
		if err != nil {
			return nil, err
		}
		buf = appendStripped(buf, chunk)
		if time.Since(start) > timeout {
			return nil, nil
		}
	}

	// Phase B: the reply's own length byte tells us how much more to
	// read.
	replyTotalLen := int(buf[need-1])
	need = len(frame) + replyTotalLen
	if replyTotalLen < mtypeLen+2 {
		// A declared length of 0 (or, on a garbled line, anything
		// too short to hold the reply's own mtype, length byte and
		// checksum) can never be a real reply; treat it the same as
		// no response rather than handing SendCommand a reply too
		// short to checksum and parse.
		return nil, nil
	}
	for len(buf) < need {
		chunk, err := t.a.Read()
		if err != nil {
			return nil, err
		}
		buf = appendStripped(buf, chunk)
		if time.Since(start) > timeout {
			return nil, nil
		}
	}

	// Discard the bus echo of our own request.
	return buf[len(frame):need], nil
}

// appendStripped appends chunk to buf, dropping the two FTDI modem-status
// bytes that prefix every 64-byte USB packet boundary (spec.md §4.2). A
// chunk of 2 bytes or fewer is pure status and contributes nothing.
func appendStripped(buf, chunk []byte) []byte {
	if len(chunk) <= 2 {
		return buf
	}
	for i := 0; i < len(chunk); i += 64 {
		end := i + 64
		if end > len(chunk) {
			end = len(chunk)
		}
		if i+2 >= end {
			continue
		}
		buf = append(buf, chunk[i+2:end]...)
	}
	return buf
}

// SendCommand builds a frame from mtype/data, then retries the exchange up
// to the adapter's configured Retries, validating checksum and reply
// mtype before accepting a reply (spec.md §4.2).
//
// Unlike the Python original's send_command (spec.md §9's "open bug"),
// the three mtype-length validation branches below are mutually
// exclusive: exactly one of them runs per reply, and a successful return
// only ever happens when that branch actually validated.
//
// Returns (nil, nil) once retries are exhausted with no valid reply — the
// spec's "no response" result, not an error.
func (t *Transport) SendCommand(mtype, data []byte) (*Response, error) {
	frame := FormatMessage(mtype, data)
	ml := len(mtype)
	retries := t.a.Retries()

	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := t.send(frame, ml)
		if err != nil {
			return nil, err
		}
		if len(resp) == 0 {
			t.a.AccountRetry()
			continue
		}
		if Checksum8BitHonda(resp[:len(resp)-1]) != resp[len(resp)-1] {
			t.a.AccountChecksumError()
			continue
		}

		replyMType := resp[:ml]
		var valid bool
		switch ml {
		case 3:
			valid = replyMType[0] == mtype[0]|0x10 && replyMType[1] == mtype[1]|0x10
		case 2:
			valid = replyMType[0] == mtype[0] && replyMType[1] == mtype[1]
		case 1:
			valid = replyMType[0] == mtype[0]&0x0F
		}
		if !valid {
			// A mismatched reply mtype means something answered but not
			// to our command; spec.md §7 calls this "unneeded-retry
			// territory" rather than a generic retry.
			t.a.AccountUnneededRetry()
			continue
		}

		replyLength := resp[ml]
		replyData := resp[ml+1 : len(resp)-1]
		replyDataLen := int(replyLength) - 2 - ml
		t.a.PublishStats()
		return &Response{
			ReplyMType:   replyMType,
			ReplyLength:  replyLength,
			ReplyData:    replyData,
			ReplyDataLen: replyDataLen,
		}, nil
	}

	t.a.PublishStats()
	return nil, nil
}
