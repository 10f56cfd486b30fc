// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !windows

package main

// listSupplemental has nothing to add outside Windows: the gousb bus scan
// is the only device source.
func listSupplemental() []string { return nil }
