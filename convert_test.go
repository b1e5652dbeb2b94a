// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import (
	"errors"
	"math"
	"testing"

	"github.com/gotmc/bristol671/lib/units"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestPowerRoundTrip(t *testing.T) {
	for _, mw := range []float64{1e-9, 1e-3, 0.5, 1, 2, 10, 123.456, 1e6} {
		if got := DBmToMilliwatt(MilliwattToDBm(mw)); !approx(got, mw) {
			t.Errorf("round trip of %g mW gave %g", mw, got)
		}
	}
	if got := MilliwattToDBm(1); got != 0 {
		t.Errorf("1 mW = %g dBm", got)
	}
	if got := DBmToMilliwatt(10); !approx(got, 10) {
		t.Errorf("10 dBm = %g mW", got)
	}
}

func TestConvertMeasurement(t *testing.T) {
	reg := units.NewRegistry()
	for _, tc := range []struct {
		name   string
		value  float64
		m      Measurement
		target string
		pu     PowerUnit
		want   float64
	}{
		{"wavelength nm to um", 1550, Wavelength, "um", 0, 1.55},
		{"wavelength nm to m", 632.8, Wavelength, "m", 0, 632.8e-9},
		{"frequency THz to GHz", 193.4, Frequency, "GHz", 0, 193400},
		{"wavenumber 1/cm to 1/m", 6451.6, Wavenumber, "1/m", 0, 645160},
		{"power mW to W", 10, Power, "W", MilliWatt, 0.01},
		{"power mW to uW", 0.25, Power, "uW", MilliWatt, 250},
		{"power dBm to mW", 10, Power, "mW", DBm, 10},
		{"power dBm to dBm", -3, Power, "dBm", DBm, -3},
		{"power mW to dBm", 100, Power, "dBm", MilliWatt, 20},
	} {
		q, err := ConvertMeasurement(reg, tc.value, tc.m, tc.target, tc.pu)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if !approx(q.Value, tc.want) || q.Unit != tc.target {
			t.Errorf("%s: got %v, want %g %s", tc.name, q, tc.want, tc.target)
		}
	}
}

func TestConvertMeasurementErrors(t *testing.T) {
	reg := units.NewRegistry()
	for _, tc := range []struct {
		name   string
		value  float64
		m      Measurement
		target string
		pu     PowerUnit
		want   error
	}{
		{"power without unit", 10, Power, "mW", UnknownPowerUnit, ErrInvalidArgument},
		{"non-positive power to dBm", 0, Power, "dBm", MilliWatt, ErrInvalidArgument},
		{"environment", 25, EnvironmentData, "K", 0, ErrUnsupportedConversion},
		{"all", 1, AllData, "nm", 0, ErrUnsupportedConversion},
		{"wavelength to power", 1550, Wavelength, "mW", 0, units.ErrIncommensurate},
		{"unknown target", 1550, Wavelength, "furlong", 0, units.ErrUnknownUnit},
	} {
		if _, err := ConvertMeasurement(reg, tc.value, tc.m, tc.target, tc.pu); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestNativeUnit(t *testing.T) {
	for m, want := range map[Measurement]string{
		Power:           "mW",
		Frequency:       "THz",
		Wavelength:      "nm",
		Wavenumber:      "1/cm",
		EnvironmentData: "",
		AllData:         "",
	} {
		if got := NativeUnit(m); got != want {
			t.Errorf("NativeUnit(%s) = %q, want %q", m, got, want)
		}
	}
}
