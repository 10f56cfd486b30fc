// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wmiscan lists candidate FTDI devices on Windows through WMI,
// for host tooling (cmd/ecuctl's "list" subcommand) that wants a device
// picker without walking the USB bus directly.
//
// Grounded on the teacher's own Windows-only WMI probe,
// experimental/host/winthermal/winthermal_windows.go, which queries a
// Win32_* class through github.com/StackExchange/wmi (itself built on
// github.com/go-ole/go-ole for the underlying COM/OLE calls).
package wmiscan

import "github.com/StackExchange/wmi"

// DeviceInfo describes one FTDI-family device as reported by Windows
// Plug-and-Play.
type DeviceInfo struct {
	Name        string
	DeviceID    string
	Description string
}

// win32PnPEntity mirrors the subset of Win32_PnPEntity's fields this
// package queries. Field names must match the WMI class's property names;
// github.com/StackExchange/wmi matches them case-insensitively by
// reflection, the same convention winthermal_windows.go relies on.
type win32PnPEntity struct {
	Name        string
	DeviceID    string
	Description string
}

// List queries Win32_PnPEntity for devices whose DeviceID contains an FTDI
// vendor ID (VID_0403, the common adapters this library targets) and
// returns them as DeviceInfo.
func List() ([]DeviceInfo, error) {
	var entities []win32PnPEntity
	q := "SELECT Name, DeviceID, Description FROM Win32_PnPEntity WHERE DeviceID LIKE '%VID_0403%'"
	if err := wmi.Query(q, &entities); err != nil {
		return nil, err
	}
	out := make([]DeviceInfo, 0, len(entities))
	for _, e := range entities {
		out = append(out, DeviceInfo{Name: e.Name, DeviceID: e.DeviceID, Description: e.Description})
	}
	return out, nil
}
