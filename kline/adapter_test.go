// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package kline

import (
	"testing"
	"time"
)

// fakeHandle is a scripted kline.Handle, in the same spirit as the
// teacher's d2xxFakeHandle (hostextra/d2xx/driver_test.go): every method
// the interface requires gets a trivial, test-controlled implementation.
type fakeHandle struct {
	busyWrites int // number of leading Write calls that return UsbBusyError
	writeErr   error
	reads      [][]byte
	readErr    error
	writeCount int
	purgeCount int
	closed     bool
}

func (f *fakeHandle) Write(b []byte) (int, error) {
	f.writeCount++
	if f.busyWrites > 0 {
		f.busyWrites--
		return 0, UsbBusyError{}
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(b), nil
}

func (f *fakeHandle) Read() ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.reads) == 0 {
		return nil, nil
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	return r, nil
}

func (f *fakeHandle) Purge() error                                   { f.purgeCount++; return nil }
func (f *fakeHandle) SetBitMode(mask, mode byte) error                { return nil }
func (f *fakeHandle) SetLineProperty(dataBits, stopBits int, p byte) error { return nil }
func (f *fakeHandle) SetBaudRate(hz int) error                        { return nil }
func (f *fakeHandle) Close() error                                    { f.closed = true; return nil }

type recordingObserver struct {
	stats    []AdapterStats
	usbErrs  int
	ftdiErrs int
}

func (o *recordingObserver) OnStats(s AdapterStats)                { o.stats = append(o.stats, s) }
func (o *recordingObserver) OnDebug(string)                        {}
func (o *recordingObserver) OnUsbError(errno int, strerror string)  { o.usbErrs++ }
func (o *recordingObserver) OnFtdiError(errno int, strerror string) { o.ftdiErrs++ }

func newTestAdapter(t *testing.T, h Handle) (*Adapter, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	a, err := NewAdapter(h, NewAdapterConfig(WithKlineProbe(20*time.Millisecond, time.Millisecond, 1)), obs)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a, obs
}

func TestKlinePingAlive(t *testing.T) {
	h := &fakeHandle{reads: [][]byte{{0x00, 0x00, 0xFF}}}
	a, _ := newTestAdapter(t, h)
	if !a.KlinePing() {
		t.Fatalf("expected alive line")
	}
	if h.purgeCount == 0 {
		t.Fatalf("expected buffers to be purged")
	}
}

func TestKlinePingDead(t *testing.T) {
	h := &fakeHandle{reads: nil}
	a, _ := newTestAdapter(t, h)
	if a.KlinePing() {
		t.Fatalf("expected dead line")
	}
}

func TestAdapterBusyRetriesThenSucceeds(t *testing.T) {
	h := &fakeHandle{busyWrites: 2}
	a, obs := newTestAdapter(t, h)
	n, err := a.Write([]byte{0x01})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 1 {
		t.Fatalf("Write returned n=%d, want 1", n)
	}
	if h.writeCount != 3 {
		t.Fatalf("writeCount = %d, want 3 (2 busy + 1 success)", h.writeCount)
	}
	if got := a.Stats().UsbBusy; got != 2 {
		t.Fatalf("UsbBusy = %d, want 2", got)
	}
	if len(obs.stats) == 0 {
		t.Fatalf("expected stats to be published on busy retry")
	}
}

func TestAdapterHardUsbErrorAborts(t *testing.T) {
	h := &fakeHandle{writeErr: UsbError{Errno: 19, Strerror: "no such device"}}
	a, obs := newTestAdapter(t, h)
	if _, err := a.Write([]byte{0x01}); err == nil {
		t.Fatalf("expected hard error to be returned")
	}
	if obs.usbErrs != 1 {
		t.Fatalf("usbErrs = %d, want 1", obs.usbErrs)
	}
}

func TestSetRetriesSaveRestore(t *testing.T) {
	h := &fakeHandle{}
	a, _ := newTestAdapter(t, h)
	orig := a.Retries()
	prev := a.SetRetries(0)
	if prev != orig {
		t.Fatalf("SetRetries returned %d, want %d", prev, orig)
	}
	if a.Retries() != 0 {
		t.Fatalf("Retries() = %d, want 0", a.Retries())
	}
	a.SetRetries(prev)
	if a.Retries() != orig {
		t.Fatalf("restore failed: Retries() = %d, want %d", a.Retries(), orig)
	}
}
