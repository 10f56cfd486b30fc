// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package transport

import (
	"testing"

	"github.com/PhatDatPQ/eculib/kline"
)

func TestFormatMessageInvariants(t *testing.T) {
	frame := FormatMessage([]byte{0x72}, []byte{0x71, 0x00})
	if got, want := frame.TotalLen(1), byte(len(frame)); got != want {
		t.Fatalf("total_len byte = %#x, want %#x", got, want)
	}
	var sum byte
	for _, b := range frame {
		sum += b
	}
	if sum != 0 {
		t.Fatalf("frame sum mod 256 = %#x, want 0", sum)
	}
}

func TestChecksumSelfConsistent(t *testing.T) {
	data := []byte{0x7E, 0x01, 0x02, 0x9A, 0x3C}
	cksum := Checksum8BitHonda(data)
	full := append(append([]byte{}, data...), cksum)
	var sum byte
	for _, b := range full {
		sum += b
	}
	if sum != 0 {
		t.Fatalf("sum with appended checksum = %#x, want 0", sum)
	}
}

func TestValidateChecksumsAlwaysFixesInRange(t *testing.T) {
	byts := []byte{0x72, 0x05, 0x71, 0x00, 0x00} // checksum byte deliberately wrong
	ok, fixed := ValidateChecksums(byts, 4)
	if !ok || !fixed {
		t.Fatalf("ValidateChecksums(in-range) = (%v, %v), want (true, true)", ok, fixed)
	}
	if Checksum8BitHonda(byts) != 0 {
		t.Fatalf("byts not actually valid after fix")
	}
}

// fakeHandle is a scripted kline.Handle for transport-level tests: it
// echoes the written frame back (as K-Line naturally would) followed by a
// canned reply, split into 64-byte-aligned chunks the way the real FTDI
// adapter delivers them, each prefixed with 2 status bytes.
type fakeHandle struct {
	reply      []byte // what to answer with, beyond the bus echo
	chunks     [][]byte
	writeCount int
}

func (f *fakeHandle) Write(b []byte) (int, error) {
	f.writeCount++
	full := append(append([]byte{}, b...), f.reply...)
	f.chunks = chunkWithStatus(full)
	return len(b), nil
}

func (f *fakeHandle) Read() ([]byte, error) {
	if len(f.chunks) == 0 {
		return nil, nil
	}
	c := f.chunks[0]
	f.chunks = f.chunks[1:]
	return c, nil
}

func (f *fakeHandle) Purge() error                                        { return nil }
func (f *fakeHandle) SetBitMode(mask, mode byte) error                    { return nil }
func (f *fakeHandle) SetLineProperty(dataBits, stopBits int, p byte) error { return nil }
func (f *fakeHandle) SetBaudRate(hz int) error                            { return nil }
func (f *fakeHandle) Close() error                                       { return nil }

// chunkWithStatus packs payload into 62-byte data windows, each preceded
// by 2 filler status bytes, mirroring the real adapter's 64-byte USB
// packet boundaries (spec.md §4.2).
func chunkWithStatus(payload []byte) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(payload); i += 62 {
		end := i + 62
		if end > len(payload) {
			end = len(payload)
		}
		chunk := append([]byte{0x31, 0x60}, payload[i:end]...)
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		chunks = append(chunks, []byte{0x31, 0x60})
	}
	return chunks
}

func newFakeTransport(t *testing.T, h *fakeHandle) *Transport {
	t.Helper()
	a, err := kline.NewAdapter(h, kline.NewAdapterConfig(), kline.NopObserver{})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return New(a)
}

func TestSendCommandPing(t *testing.T) {
	// ping() sends a 1-byte mtype [0xFE]; per spec.md §4.2 a 1-byte mtype
	// reply must equal mtype & 0x0F, not the mtype verbatim.
	replyMtype := []byte{0xFE & 0x0F}
	reply := FormatMessage(replyMtype, []byte{0x72})
	h := &fakeHandle{reply: reply}
	tr := newFakeTransport(t, h)

	resp, err := tr.SendCommand([]byte{0xFE}, []byte{0x72})
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected a response, got nil (no response)")
	}
}

func TestSendCommand2ByteMtypeExact(t *testing.T) {
	// A 2-byte mtype reply must equal the request mtype exactly.
	mtype := []byte{0x12, 0x34}
	reply := FormatMessage(mtype, []byte{0x00})
	h := &fakeHandle{reply: reply}
	tr := newFakeTransport(t, h)

	resp, err := tr.SendCommand(mtype, []byte{0x00})
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected a response")
	}
}

func Test3ByteMtypeOring(t *testing.T) {
	// A 3-byte mtype request is answered with each of its first two
	// bytes OR'd with 0x10 (spec.md §4.2).
	reqMtype := []byte{0x82, 0x82, 0x00}
	replyMtype := []byte{0x82 | 0x10, 0x82 | 0x10, 0x00}
	reply := FormatMessage(replyMtype, []byte{0x00, 0x00, 0x00})
	h := &fakeHandle{reply: reply}
	tr := newFakeTransport(t, h)

	resp, err := tr.SendCommand(reqMtype, []byte{0x00})
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected a response")
	}
}

func TestSendCommandNoResponseExhaustsRetries(t *testing.T) {
	h := &fakeHandle{reply: nil}
	tr := newFakeTransport(t, h)
	// One retry: two attempts, each waiting out the default 100ms
	// timeout.
	tr.a.SetRetries(1)

	resp, err := tr.SendCommand([]byte{0xFE}, []byte{0x72})
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil response when retries exhausted")
	}
	if h.writeCount != 2 {
		t.Fatalf("writeCount = %d, want 2 (1 attempt + 1 retry)", h.writeCount)
	}
}
