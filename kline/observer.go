// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package kline

import "log"

// Observer receives the events an Adapter publishes. It replaces the
// name-keyed pydispatch bus used by the original Python implementation
// (spec.md §9): each event is a typed callback instead of a
// string-dispatched signal.
type Observer interface {
	// OnStats is called with a snapshot of AdapterStats after every
	// counter mutation.
	OnStats(AdapterStats)
	// OnDebug is called with a human-readable hex dump of an outgoing or
	// incoming frame.
	OnDebug(msg string)
	// OnUsbError is called when a hard (non-retryable) USB error aborts
	// an operation.
	OnUsbError(errno int, strerror string)
	// OnFtdiError is called when a hard (non-retryable) FTDI error
	// aborts an operation.
	OnFtdiError(errno int, strerror string)
}

// NopObserver discards every event. Embed it, or use it directly, when the
// caller has no interest in stats/debug/error notifications.
type NopObserver struct{}

func (NopObserver) OnStats(AdapterStats)                   {}
func (NopObserver) OnDebug(string)                         {}
func (NopObserver) OnUsbError(errno int, strerror string)  {}
func (NopObserver) OnFtdiError(errno int, strerror string) {}

// LogObserver publishes every event to the standard library logger,
// mirroring the teacher's own d2xxLoggingHandle wrap-and-log pattern
// (hostextra/d2xx/d2xx.go) rather than reaching for a third-party
// structured logger for this kind of low-level device trace.
type LogObserver struct {
	// Debug, when false, suppresses OnDebug frame dumps (they are noisy
	// at full speed) while still logging stats and errors.
	Debug bool
}

func (o LogObserver) OnStats(s AdapterStats) {
	log.Printf("kline: stats retries=%d checksum_errors=%d unneeded_retry=%d usb_busy=%d",
		s.Retries, s.ChecksumErrors, s.UnneededRetry, s.UsbBusy)
}

func (o LogObserver) OnDebug(msg string) {
	if o.Debug {
		log.Print("kline: ", msg)
	}
}

func (o LogObserver) OnUsbError(errno int, strerror string) {
	log.Printf("kline: usb error %d: %s", errno, strerror)
}

func (o LogObserver) OnFtdiError(errno int, strerror string) {
	log.Printf("kline: ftdi error %d: %s", errno, strerror)
}
