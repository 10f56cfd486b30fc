// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package honda

import "time"

// DoInitRecover sends the two fixed frames that prime the bootloader for
// recovery mode (spec.md §4.3). Neither reply is inspected; the sequence
// is fire-and-forget, matching the original.
func (e *ECU) DoInitRecover() {
	e.t.SendCommand([]byte{0x7B}, []byte{0x00, 0x02, 0x76, 0x03, 0x17})
	e.t.SendCommand([]byte{0x7B}, []byte{0x00, 0x03, 0x75, 0x05, 0x13})
}

// DoInitWrite sends the two fixed frames that prime the bootloader for
// flash write mode (spec.md §4.3).
func (e *ECU) DoInitWrite() {
	e.t.SendCommand([]byte{0x7D}, []byte{0x01, 0x02, 0x50, 0x47, 0x4D})
	e.t.SendCommand([]byte{0x7D}, []byte{0x01, 0x03, 0x2D, 0x46, 0x49})
}

// GetWriteStatus polls the bootloader's write-status byte. It returns
// (0, false) if the ECU didn't answer.
func (e *ECU) GetWriteStatus() (byte, bool) {
	info, err := e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x01, 0x00})
	if err != nil || info == nil || len(info.ReplyData) < 2 {
		return 0, false
	}
	return info.ReplyData[1], true
}

// DoErase runs the flash erase sequence: arm, set the erase window to the
// full chip, kick it off, then confirm the bootloader accepted it
// (spec.md §4.3).
func (e *ECU) DoErase() bool {
	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x02})
	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x03, 0x00, 0x00})
	e.GetWriteStatus()
	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x0B, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF})
	e.GetWriteStatus()
	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x0E, 0x01, 0x90})
	time.Sleep(40 * time.Millisecond)

	info, err := e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x04, 0xFF})
	if err != nil || info == nil || len(info.ReplyData) < 2 {
		return false
	}
	return info.ReplyData[1] == 0
}

// DoEraseWait polls the bootloader's erase-in-progress byte every 100ms
// until it clears, then confirms completion with one final status read
// (spec.md §4.3). It gives up as soon as the ECU stops answering.
func (e *ECU) DoEraseWait() {
	for {
		time.Sleep(100 * time.Millisecond)
		info, err := e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x05})
		if err != nil || info == nil || len(info.ReplyData) < 2 {
			return
		}
		if info.ReplyData[1] == 0 {
			break
		}
	}
	e.GetWriteStatus()
}

// DoPostWrite runs the four post-write bootloader steps, each followed by
// a 500ms settle and a status poll, then confirms the final status is 15
// before accepting the write as complete (spec.md §4.3).
func (e *ECU) DoPostWrite() bool {
	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x08})
	time.Sleep(500 * time.Millisecond)
	e.GetWriteStatus()

	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x09})
	time.Sleep(500 * time.Millisecond)
	e.GetWriteStatus()

	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x0A})
	time.Sleep(500 * time.Millisecond)
	e.GetWriteStatus()

	e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x0C})
	time.Sleep(500 * time.Millisecond)

	status, ok := e.GetWriteStatus()
	if !ok || status != 15 {
		return false
	}
	info, err := e.t.SendCommand([]byte{0x7E}, []byte{0x01, 0x0D})
	if err != nil || info == nil || len(info.ReplyData) < 2 {
		return false
	}
	return info.ReplyData[1] == 15
}
