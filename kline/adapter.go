// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package kline implements the K-Line serial transport layer used by Honda
// PGM-FI diagnostics: timed, retry-free byte I/O against an FTDI-like
// adapter, the liveness probe, and the counter bag published on every
// mutation.
//
// kline deliberately knows nothing about Honda frame layout; that lives in
// package transport. It only knows how to move bytes and how to tell if the
// K-Line is electrically alive.
package kline

import "time"

// Handle is the narrow byte-I/O surface a concrete FTDI-like device must
// provide. It is the external collaborator named in spec.md §6: Adapter
// borrows one, it does not implement USB/FTDI itself.
//
// Package kline/usbftdi provides one concrete implementation built on
// gousb; tests use a fake.
type Handle interface {
	// Write forwards raw bytes to the device, returning the number
	// actually written.
	Write(b []byte) (int, error)
	// Read returns whatever is currently available without blocking
	// past the device's own read timeout. Chunks may be prefixed by
	// FTDI modem-status bytes; stripping them is transport's job, not
	// kline's (spec.md §4.2).
	Read() ([]byte, error)
	// Purge drops both the TX and RX buffers at the adapter.
	Purge() error
	// SetBitMode switches the device between UART and bit-bang modes.
	SetBitMode(mask, mode byte) error
	// SetLineProperty configures data bits / stop bits / parity.
	SetLineProperty(dataBits, stopBits int, parity byte) error
	// SetBaudRate configures the UART baud rate.
	SetBaudRate(hz int) error
	// Close releases the underlying device.
	Close() error
}

// Bit-bang mode values used by the Honda wake sequence (spec.md §4.3) and
// by kline/usbftdi's SetBitMode. Named the same as the FTDI SIO constants
// the teacher enumerates in hostextra/d2xx/d2xx.go's bitMode const block.
const (
	BitModeReset        byte = 0x00
	BitModeAsyncBitbang byte = 0x01
)

// AdapterConfig holds the immutable parameters of a K-Line session.
// Defaults match spec.md §3.
type AdapterConfig struct {
	BaudRate       int
	DataBits       int
	StopBits       int
	Parity         byte
	Retries        int
	Timeout        time.Duration
	KlineTimeout   time.Duration
	KlineWait      time.Duration
	KlineTestbytes int
}

// ConfigOption mutates an AdapterConfig under construction.
type ConfigOption func(*AdapterConfig)

// WithBaudRate overrides the default 10400 baud.
func WithBaudRate(hz int) ConfigOption { return func(c *AdapterConfig) { c.BaudRate = hz } }

// WithRetries overrides the default retry count of 1.
func WithRetries(n int) ConfigOption { return func(c *AdapterConfig) { c.Retries = n } }

// WithTimeout overrides the default 100ms generic operation timeout.
func WithTimeout(d time.Duration) ConfigOption { return func(c *AdapterConfig) { c.Timeout = d } }

// WithKlineProbe overrides the liveness-probe timeout, inter-byte wait, and
// test-byte count in one call.
func WithKlineProbe(timeout, wait time.Duration, testbytes int) ConfigOption {
	return func(c *AdapterConfig) {
		c.KlineTimeout = timeout
		c.KlineWait = wait
		c.KlineTestbytes = testbytes
	}
}

// NewAdapterConfig builds an AdapterConfig with spec.md §3's defaults,
// applying any overrides in order.
func NewAdapterConfig(opts ...ConfigOption) AdapterConfig {
	c := AdapterConfig{
		BaudRate:       10400,
		DataBits:       8,
		StopBits:       1,
		Parity:         'N',
		Retries:        1,
		Timeout:        100 * time.Millisecond,
		KlineTimeout:   100 * time.Millisecond,
		KlineWait:      2 * time.Millisecond,
		KlineTestbytes: 1,
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// AdapterStats is the counter bag an Adapter owns and publishes on every
// mutation (spec.md §3). All fields are non-negative and monotone
// non-decreasing across a session.
type AdapterStats struct {
	Retries        uint64
	ChecksumErrors uint64
	UnneededRetry  uint64
	UsbBusy        uint64
}

// Adapter owns a Handle, the session's AdapterConfig, and its AdapterStats.
// It is not safe for concurrent use (spec.md §5): one logical ECU session
// uses one Adapter exclusively.
type Adapter struct {
	h     Handle
	cfg   AdapterConfig
	stats AdapterStats
	obs   Observer
}

// NewAdapter wires a Handle, its config, and an Observer into a ready
// Adapter. obs may be NopObserver{} if the caller doesn't care.
//
// Construction applies the UART line configuration immediately, matching
// the original KlineAdapter.__init__'s set_baudrate/set_line_property calls
// (_examples/original_source/eculib/base.py).
func NewAdapter(h Handle, cfg AdapterConfig, obs Observer) (*Adapter, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	a := &Adapter{h: h, cfg: cfg, obs: obs}
	if err := h.SetBaudRate(cfg.BaudRate); err != nil {
		return nil, err
	}
	if err := h.SetLineProperty(cfg.DataBits, cfg.StopBits, cfg.Parity); err != nil {
		return nil, err
	}
	a.publishStats()
	return a, nil
}

// Config returns the adapter's immutable configuration.
func (a *Adapter) Config() AdapterConfig { return a.cfg }

// Stats returns a snapshot of the current counters.
func (a *Adapter) Stats() AdapterStats { return a.stats }

// Retries returns the currently configured retry count. DetectState
// temporarily overrides this to 0 (spec.md §4.3) and must restore it
// unconditionally afterward; SetRetries supports that save/restore.
func (a *Adapter) Retries() int { return a.cfg.Retries }

// SetRetries installs a new retry count and returns the previous one.
func (a *Adapter) SetRetries(n int) int {
	prev := a.cfg.Retries
	a.cfg.Retries = n
	return prev
}

// Close releases the underlying handle.
func (a *Adapter) Close() error { return a.h.Close() }

func (a *Adapter) publishStats() { a.obs.OnStats(a.stats) }

// PublishStats re-publishes the current stats snapshot to the Observer.
// Transport calls this once per SendCommand attempt loop, matching the
// original's single dispatcher.send(signal='ecu.stats', ...) after the
// retry loop (spec.md §4.2).
func (a *Adapter) PublishStats() { a.publishStats() }

// AccountRetry increments the retry counter for a "no response" attempt.
func (a *Adapter) AccountRetry() { a.stats.Retries++ }

// AccountChecksumError increments the checksum-error counter for a reply
// that failed checksum validation.
func (a *Adapter) AccountChecksumError() { a.stats.ChecksumErrors++ }

// AccountUnneededRetry increments the unneeded-retry counter for a reply
// that arrived and checksummed correctly but didn't match the expected
// reply mtype (spec.md §7).
func (a *Adapter) AccountUnneededRetry() { a.stats.UnneededRetry++ }

// handleErr classifies err and applies the taxonomy from spec.md §7:
// UsbBusyError bumps the usb_busy counter and is retryable (returns true);
// any other error is published to the Observer and must abort the caller's
// operation (returns false).
func (a *Adapter) handleErr(err error) (retry bool) {
	switch ClassifyError(err) {
	case ErrKindNone:
		return false
	case ErrKindBusy:
		a.stats.UsbBusy++
		a.publishStats()
		return true
	default:
		switch e := err.(type) {
		case UsbError:
			a.obs.OnUsbError(e.Errno, e.Strerror)
		case FtdiError:
			a.obs.OnFtdiError(e.Errno, e.Strerror)
		}
		return false
	}
}

// Write forwards to the Handle, retrying transparently on UsbBusyError.
// Any other error is published and returned to the caller.
func (a *Adapter) Write(b []byte) (int, error) {
	for {
		n, err := a.h.Write(b)
		if err == nil {
			return n, nil
		}
		if a.handleErr(err) {
			continue
		}
		return n, err
	}
}

// Read forwards to the Handle with the same busy-retry behavior as Write.
func (a *Adapter) Read() ([]byte, error) {
	for {
		b, err := a.h.Read()
		if err == nil {
			return b, nil
		}
		if a.handleErr(err) {
			continue
		}
		return b, err
	}
}

// Purge drops both TX and RX buffers at the adapter.
func (a *Adapter) Purge() error {
	for {
		err := a.h.Purge()
		if err == nil {
			return nil
		}
		if a.handleErr(err) {
			continue
		}
		return err
	}
}

// SetBitMode switches bit-bang mode, used by the Honda wake sequence.
func (a *Adapter) SetBitMode(mask, mode byte) error {
	for {
		err := a.h.SetBitMode(mask, mode)
		if err == nil {
			return nil
		}
		if a.handleErr(err) {
			continue
		}
		return err
	}
}

// KlinePing is the K-Line liveness probe (spec.md §4.1).
//
// K-Line is single-wire half-duplex with TX electrically looped back to
// RX; a line that is electrically present echoes exactly
// 2+kline_testbytes bytes (two FTDI status bytes plus the echoed data) for
// every kline_testbytes-byte write of 0xFF. The loop retries on
// UsbBusyError and gives up once KlineTimeout has elapsed since the first
// attempt. Buffers are purged on both entry and exit regardless of outcome.
func (a *Adapter) KlinePing() bool {
	msg := make([]byte, a.cfg.KlineTestbytes)
	for i := range msg {
		msg[i] = 0xFF
	}
	want := 2 + a.cfg.KlineTestbytes
	start := time.Now()
	ok := false
loop:
	for {
		if err := a.h.Purge(); err != nil {
			if a.handleErr(err) {
				continue
			}
			break
		}
		n, err := a.h.Write(msg)
		if err != nil {
			if a.handleErr(err) {
				continue
			}
			break
		}
		if n == a.cfg.KlineTestbytes {
			time.Sleep(a.cfg.KlineWait)
			resp, err := a.h.Read()
			if err != nil {
				if a.handleErr(err) {
					continue
				}
				break
			}
			if len(resp) == want {
				ok = true
				break loop
			}
		}
		if time.Since(start) > a.cfg.KlineTimeout {
			break
		}
	}
	a.h.Purge()
	return ok
}
