// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package honda

// FaultReport is the result of GetFaults: current and past DTC codes as
// "MM-NN" strings (spec.md §4.3). The original Python returns a loosely
// typed {'past': [...], 'current': [...]} dict; this names both fields on
// a struct instead.
type FaultReport struct {
	Current []string
	Past    []string
}

// GetFaults queries the "current" (subcode 0x74) and "past" (subcode
// 0x73) DTC lists and decodes the major/minor fault pairs found directly
// in each reply's data payload (spec.md §4.3).
func (e *ECU) GetFaults() FaultReport {
	var report FaultReport
	report.Current = e.collectFaults(0x74)
	report.Past = e.collectFaults(0x73)
	return report
}

// collectFaults implements the shared current/past polling loop: send
// mtype [0x72] data [subcode, i] for i in 1..11, decode major/minor pairs
// at payload positions 3/4, 5/6, 7/8, and stop early once payload
// position 2 reads zero.
func (e *ECU) collectFaults(subcode byte) []string {
	var faults []string
	for i := byte(1); i <= 11; i++ {
		info, err := e.t.SendCommand([]byte{0x72}, []byte{subcode, i})
		if err != nil || info == nil {
			break
		}
		data := info.ReplyData
		if len(data) <= 2 {
			break
		}
		for _, j := range []int{3, 5, 7} {
			if j+1 >= len(data) {
				continue
			}
			if data[j] != 0 {
				faults = append(faults, formatDTC(data[j], data[j+1]))
			}
		}
		if data[2] == 0 {
			break
		}
	}
	return faults
}
