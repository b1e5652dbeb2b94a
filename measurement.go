// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import (
	"fmt"
	"strings"
)

// Measurement selects the quantity reported by the wavelength meter.
type Measurement int

// Available measurements.
const (
	Power Measurement = iota
	Frequency
	Wavelength
	Wavenumber
	EnvironmentData
	AllData
)

var measurementMnemonic = map[Measurement]string{
	Power:           "POW",
	Frequency:       "FREQ",
	Wavelength:      "WAV",
	Wavenumber:      "WNUM",
	EnvironmentData: "ENV",
	AllData:         "ALL",
}

var measurementDesc = map[Measurement]string{
	Power:           "POWER",
	Frequency:       "FREQUENCY",
	Wavelength:      "WAVELENGTH",
	Wavenumber:      "WAVENUMBER",
	EnvironmentData: "ENVIRONMENT",
	AllData:         "ALL",
}

func (m Measurement) String() string {
	if s, ok := measurementDesc[m]; ok {
		return s
	}
	return fmt.Sprintf("Measurement(%d)", int(m))
}

// Scalar reports whether m is a single unit-convertible value.
func (m Measurement) Scalar() bool {
	switch m {
	case Power, Frequency, Wavelength, Wavenumber:
		return true
	}
	return false
}

// ParseMeasurement accepts a measurement name or its SCPI mnemonic, in any
// case, e.g. "wavelength" or "WAV".
func ParseMeasurement(s string) (Measurement, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for m, name := range measurementDesc {
		if s == name || s == measurementMnemonic[m] {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown measurement %q", ErrInvalidArgument, s)
}

// Method selects which scan a reading is taken from.
type Method int

// Available methods. Read and Measure guarantee a new reading; to retrieve
// several quantities from one scan, use a Read followed by Fetches.
const (
	Fetch   Method = iota // last completed scan
	Read                  // scan in progress
	Measure               // next scan
)

var methodDesc = map[Method]string{
	Fetch:   "FETC",
	Read:    "READ",
	Measure: "MEAS",
}

func (m Method) String() string {
	if s, ok := methodDesc[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod accepts "fetch", "read" or "measure" in any case, or the SCPI
// short forms.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FETCH", "FETC":
		return Fetch, nil
	case "READ":
		return Read, nil
	case "MEASURE", "MEAS":
		return Measure, nil
	}
	return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidArgument, s)
}

// query returns the SCPI query for method m and measurement d, e.g.
// "FETC:WAV?".
func (m Method) query(d Measurement) string {
	return fmt.Sprintf("%s:%s?", m, measurementMnemonic[d])
}

// PowerUnit is the unit the instrument reports power in.
type PowerUnit int

// Power units. UnknownPowerUnit is the zero value and means "not given".
const (
	UnknownPowerUnit PowerUnit = iota
	DBm
	MilliWatt
)

var powerUnitToken = map[PowerUnit]string{
	DBm:       "DBM",
	MilliWatt: "MW",
}

func (u PowerUnit) String() string {
	switch u {
	case DBm:
		return "dBm"
	case MilliWatt:
		return "mW"
	}
	return "unknown"
}

// ParsePowerUnit parses the reply to UNIT:POWER?.
func ParsePowerUnit(s string) (PowerUnit, error) {
	for u, tok := range powerUnitToken {
		if s == tok {
			return u, nil
		}
	}
	return UnknownPowerUnit, &ParseError{
		Context: "UNIT:POWER",
		Raw:     s,
		Err:     fmt.Errorf("unit %q is neither DBM nor MW", s),
	}
}
