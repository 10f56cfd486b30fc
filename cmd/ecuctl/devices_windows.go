// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import "github.com/PhatDatPQ/eculib/kline/wmiscan"

// listSupplemental adds a WMI-based device listing alongside the gousb bus
// scan, useful on Windows where the libusb backend sometimes can't see a
// device still bound to FTDI's own VCP/D2XX driver.
func listSupplemental() []string {
	devs, err := wmiscan.List()
	if err != nil {
		return []string{"wmi scan failed: " + err.Error()}
	}
	out := make([]string, 0, len(devs))
	for _, d := range devs {
		out = append(out, d.Name+" ("+d.DeviceID+"): "+d.Description)
	}
	return out
}
