// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package honda

import "fmt"

// DTC maps a "MM-NN" diagnostic trouble code to its human description.
// Carried over verbatim from _examples/original_source/eculib/honda.py's
// DTC table (spec.md §3/§6). Presentation beyond this raw lookup (e.g.
// localisation) is the excluded external collaborator named in spec.md §1;
// the table itself is data this repo already owns.
var DTC = map[string]string{
	"01-01": "MAP sensor circuit low voltage",
	"01-02": "MAP sensor circuit high voltage",
	"02-01": "MAP sensor performance problem",
	"07-01": "ECT sensor circuit low voltage",
	"07-02": "ECT sensor circuit high voltage",
	"08-01": "TP sensor circuit low voltage",
	"08-02": "TP sensor circuit high voltage",
	"09-01": "IAT sensor circuit low voltage",
	"09-02": "IAT sensor circuit high voltage",
	"11-01": "VS sensor no signal",
	"12-01": "No.1 primary injector circuit malfunction",
	"13-01": "No.2 primary injector circuit malfunction",
	"14-01": "No.3 primary injector circuit malfunction",
	"15-01": "No.4 primary injector circuit malfunction",
	"16-01": "No.1 secondary injector circuit malfunction",
	"17-01": "No.2 secondary injector circuit malfunction",
	"18-01": "CMP sensor no signal",
	"19-01": "CKP sensor no signal",
	"21-01": "O2 sensor low voltage",
	"21-02": "O2 sensor high voltage",
	"23-01": "O2 sensor heater malfunction",
	"25-02": "Knock sensor circuit malfunction",
	"25-03": "Knock sensor circuit malfunction",
	"29-01": "IACV circuit malfunction",
	"33-02": "ECM EEPROM malfunction",
	"34-01": "ECV POT low voltage malfunction",
	"34-02": "ECV POT high voltage malfunction",
	"35-01": "EGCA malfunction",
	"36-01": "A/F sensor malfunction",
	"38-01": "A/F sensor heater malfunction",
	"48-01": "No.3 secondary injector circuit malfunction",
	"49-01": "No.4 secondary injector circuit malfunction",
	"51-01": "HESD linear solenoid malfunction",
	"54-01": "Bank angle sensor circuit low voltage",
	"54-02": "Bank angle sensor circuit high voltage",
	"56-01": "Knock sensor IC malfunction",
	"82-01": "Fast idle solenoid valve malfunction",
	"86-01": "Serial communication malfunction",
	"88-01": "EVAP purge control solenoid valve malfunction",
	"91-01": "Ignition coil primary circuit malfunction",
}

// DescribeFault looks up the human description for a "MM-NN" code.
func DescribeFault(code string) (string, bool) {
	desc, ok := DTC[code]
	return desc, ok
}

// formatDTC renders a major/minor fault pair as "MM-NN" (spec.md §6).
func formatDTC(major, minor byte) string {
	return fmt.Sprintf("%02d-%02d", major, minor)
}
