// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package honda

// FormatRead packs a 32-bit flash/RAM location into the 3-byte
// mixed-endian address form the PGM-FI read/write commands expect:
// bits 16..23, then bits 0..7, then bits 8..15, dropping bits 24..31
// entirely (spec.md §4.3, ported from format_read in
// _examples/original_source/eculib/honda.py).
func FormatRead(location uint32) []byte {
	b1 := byte(location >> 16)
	b2 := byte(location >> 8)
	b3 := byte(location)
	return []byte{b1, b3, b2}
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

// PgmfiReadFlashBytes reads up to 12 bytes starting at location from
// flash. size must not exceed 12; a larger request fails without
// performing any I/O (spec.md §4.3).
func (e *ECU) PgmfiReadFlashBytes(location uint32, size int) (bool, []byte) {
	if size > 12 {
		return false, nil
	}
	data := append(FormatRead(location), byte(size))
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x00}, data)
	if err != nil || info == nil {
		return false, nil
	}
	if info.ReplyLength != byte(size+5) {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiReadRAMBytes reads up to 12 bytes starting at location from RAM.
func (e *ECU) PgmfiReadRAMBytes(location uint16, size int) (bool, []byte) {
	if size > 12 {
		return false, nil
	}
	data := append(le16(location), byte(size))
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x04}, data)
	if err != nil || info == nil {
		return false, nil
	}
	if info.ReplyLength != byte(size+5) {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiReadRAMWords reads up to 6 words (size is a word count and must be
// even, matching the original's guard) starting at location from RAM. The
// reply arrives as big-endian word pairs and is returned byte-swapped
// into little-endian words, exactly as
// _examples/original_source/eculib/honda.py's pgmfi_read_ram_words does
// via its unpack/repack round trip (spec.md §4.3).
func (e *ECU) PgmfiReadRAMWords(location uint16, size int) (bool, []byte) {
	if size%2 != 0 || size > 6 {
		return false, nil
	}
	size2 := size * 2
	data := append(le16(location), byte(size))
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x05}, data)
	if err != nil || info == nil {
		return false, nil
	}
	if info.ReplyLength != byte(size2+5) || len(info.ReplyData) < size2 {
		return false, nil
	}
	out := make([]byte, size2)
	for i := 0; i < size; i++ {
		out[2*i] = info.ReplyData[2*i+1]
		out[2*i+1] = info.ReplyData[2*i]
	}
	return true, out
}

// PgmfiWriteRAMBytes writes up to 12 bytes to RAM starting at location.
func (e *ECU) PgmfiWriteRAMBytes(location uint16, data []byte) (bool, []byte) {
	if len(data) > 12 {
		return false, nil
	}
	payload := append(le16(location), data...)
	payload = append(payload, byte(len(data)))
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x08}, payload)
	if err != nil || info == nil || info.ReplyLength != 5 {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiWriteRAMWords writes up to 6 words to RAM starting at location.
// data's length must be even.
func (e *ECU) PgmfiWriteRAMWords(location uint16, data []byte) (bool, []byte) {
	if len(data)%2 != 0 || len(data)/2 > 6 {
		return false, nil
	}
	payload := append(le16(location), data...)
	payload = append(payload, byte(len(data)))
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x09}, payload)
	if err != nil || info == nil || info.ReplyLength != 5 {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiReadEEPROMWord reads a single EEPROM word at the given 1-byte
// location.
func (e *ECU) PgmfiReadEEPROMWord(location byte) (bool, []byte) {
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x10}, []byte{location})
	if err != nil || info == nil || info.ReplyLength != 7 || len(info.ReplyData) < 2 {
		return false, nil
	}
	return true, info.ReplyData[:2]
}

// PgmfiWriteEEPROMWord writes a 2-byte word to the EEPROM location
// addressed by the single location byte.
func (e *ECU) PgmfiWriteEEPROMWord(location byte, data [2]byte) (bool, []byte) {
	payload := []byte{location, data[0], data[1]}
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x14}, payload)
	if err != nil || info == nil || info.ReplyLength != 5 {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiFormatEEPROMFF fills the EEPROM with 0xFF.
func (e *ECU) PgmfiFormatEEPROMFF() (bool, []byte) {
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x18}, nil)
	if err != nil || info == nil || info.ReplyLength != 5 {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiFormatEEPROM00 fills the EEPROM with 0x00.
func (e *ECU) PgmfiFormatEEPROM00() (bool, []byte) {
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x19}, nil)
	if err != nil || info == nil || info.ReplyLength != 5 {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiWriteUnk1Byte writes up to 12 bytes via the undocumented 0x1D
// sub-command (spec.md §4.3 names it only as "unk1"; its exact purpose is
// unknown upstream). Unlike the byte/word RAM writes, no size byte is
// appended.
func (e *ECU) PgmfiWriteUnk1Byte(location uint16, data []byte) (bool, []byte) {
	if len(data) > 12 {
		return false, nil
	}
	payload := append(le16(location), data...)
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x1D}, payload)
	if err != nil || info == nil || info.ReplyLength != 5 {
		return false, nil
	}
	return true, info.ReplyData
}

// PgmfiWriteUnk1Word writes up to 6 words via the undocumented 0x1E
// sub-command. data's length must be even.
func (e *ECU) PgmfiWriteUnk1Word(location uint16, data []byte) (bool, []byte) {
	if len(data)%2 != 0 || len(data)/2 > 6 {
		return false, nil
	}
	payload := append(le16(location), data...)
	info, err := e.t.SendCommand([]byte{0x82, 0x82, 0x1E}, payload)
	if err != nil || info == nil || info.ReplyLength != 5 {
		return false, nil
	}
	return true, info.ReplyData
}
