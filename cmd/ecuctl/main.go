// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ecuctl is a thin demonstration CLI over package honda: list attached
// FTDI adapters, probe ECU state, read stored faults, and run a flash
// erase. It is not a packaging/installer deliverable (SPEC_FULL.md
// Non-goals).
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io/ioutil"
	"log"
	"os"

	"github.com/google/gousb"
	"github.com/maruel/ansi256"
	colorable "github.com/mattn/go-colorable"

	"github.com/PhatDatPQ/eculib/honda"
	"github.com/PhatDatPQ/eculib/kline"
	"github.com/PhatDatPQ/eculib/kline/usbftdi"
	"github.com/PhatDatPQ/eculib/transport"
)

const ftdiVendorID = 0x0403

func openAdapter(verbose bool) (*kline.Adapter, func(), error) {
	ctx := gousb.NewContext()
	var dev *gousb.Device
	devs, err := ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		return d.Vendor == ftdiVendorID
	})
	if err != nil {
		ctx.Close()
		return nil, nil, fmt.Errorf("ecuctl: scanning usb bus: %w", err)
	}
	for _, d := range devs {
		if dev == nil {
			dev = d
			continue
		}
		d.Close()
	}
	if dev == nil {
		ctx.Close()
		return nil, nil, errors.New("ecuctl: no FTDI adapter found")
	}

	h, err := usbftdi.Open(dev)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, nil, err
	}

	var obs kline.Observer = kline.NopObserver{}
	if verbose {
		obs = kline.LogObserver{Debug: true}
	}
	a, err := kline.NewAdapter(h, kline.NewAdapterConfig(), obs)
	if err != nil {
		h.Close()
		ctx.Close()
		return nil, nil, err
	}
	cleanup := func() {
		a.Close()
		ctx.Close()
	}
	return a, cleanup, nil
}

// stateColor picks a terminal block color for an ECUState, using the same
// ansi256.Default.Block helper the teacher's devices/screen package uses
// to render RGB pixels as ANSI escapes.
func stateColor(s honda.ECUState) string {
	var c color.NRGBA
	switch s {
	case honda.StateOK:
		c = color.NRGBA{G: 255, A: 255}
	case honda.StateOFF:
		c = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	case honda.StateFlash, honda.StateSecure:
		c = color.NRGBA{R: 255, G: 165, A: 255}
	default:
		c = color.NRGBA{R: 255, A: 255}
	}
	return ansi256.Default.Block(c)
}

func cmdList() error {
	ctx := gousb.NewContext()
	defer ctx.Close()
	devs, err := ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		return d.Vendor == ftdiVendorID
	})
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		fmt.Println("No FTDI adapters found")
	}
	for i, d := range devs {
		fmt.Printf("- Device #%d: vendor=%#04x product=%#04x bus=%d addr=%d\n",
			i, d.Desc.Vendor, d.Desc.Product, d.Desc.Bus, d.Desc.Address)
		d.Close()
	}
	for _, line := range listSupplemental() {
		fmt.Println("- " + line)
	}
	return nil
}

func cmdStatus(verbose bool) error {
	a, cleanup, err := openAdapter(verbose)
	if err != nil {
		return err
	}
	defer cleanup()

	ecu := honda.New(transport.New(a))
	state := ecu.DetectState()
	out := colorable.NewColorableStdout()
	fmt.Fprintf(out, "%s %s\n", stateColor(state), state)
	return nil
}

func cmdFaults(verbose bool) error {
	a, cleanup, err := openAdapter(verbose)
	if err != nil {
		return err
	}
	defer cleanup()

	ecu := honda.New(transport.New(a))
	report := ecu.GetFaults()
	printFaultList := func(label string, codes []string) {
		fmt.Printf("%s:\n", label)
		if len(codes) == 0 {
			fmt.Println("  none")
			return
		}
		for _, code := range codes {
			desc, ok := honda.DescribeFault(code)
			if !ok {
				desc = "unknown fault"
			}
			fmt.Printf("  %s: %s\n", code, desc)
		}
	}
	printFaultList("Current", report.Current)
	printFaultList("Past", report.Past)
	return nil
}

func cmdFlashErase(verbose bool) error {
	a, cleanup, err := openAdapter(verbose)
	if err != nil {
		return err
	}
	defer cleanup()

	ecu := honda.New(transport.New(a))
	fmt.Println("initializing recovery mode...")
	ecu.DoInitRecover()
	fmt.Println("erasing...")
	if !ecu.DoErase() {
		return errors.New("ecuctl: erase not accepted by ECU")
	}
	ecu.DoEraseWait()
	fmt.Println("erase complete")
	return nil
}

func mainImpl() error {
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() == 0 {
		return errors.New("expected a subcommand: list, status, faults, flash-erase")
	}
	switch flag.Arg(0) {
	case "list":
		return cmdList()
	case "status":
		return cmdStatus(*verbose)
	case "faults":
		return cmdFaults(*verbose)
	case "flash-erase":
		return cmdFlashErase(*verbose)
	default:
		return fmt.Errorf("unknown subcommand %q, try -help", flag.Arg(0))
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "ecuctl: %s.\n", err)
		os.Exit(1)
	}
}
