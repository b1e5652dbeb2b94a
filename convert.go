// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import (
	"fmt"
	"math"

	"github.com/gotmc/bristol671/lib/units"
)

// Converter converts unit-tagged quantities. *units.Registry implements it.
type Converter interface {
	Convert(q units.Quantity, target string) (units.Quantity, error)
}

// Units the instrument reports each scalar measurement in.
const (
	powerUnit      = "mW"
	frequencyUnit  = "THz"
	wavelengthUnit = "nm"
	wavenumberUnit = "1/cm"

	// dBmUnit is accepted as a conversion target for power.
	dBmUnit = "dBm"
)

// DBmToMilliwatt converts a logarithmic power to milliwatts.
func DBmToMilliwatt(dBm float64) float64 {
	return math.Pow(10, dBm/10)
}

// MilliwattToDBm converts a linear power to dBm. mW must be positive.
func MilliwattToDBm(mW float64) float64 {
	return 10 * math.Log10(mW)
}

// NativeUnit returns the unit the instrument reports m in. Power is given in
// mW; the instrument may instead report dBm, see PowerUnit. Non-scalar
// measurements have no single unit.
func NativeUnit(m Measurement) string {
	switch m {
	case Power:
		return powerUnit
	case Frequency:
		return frequencyUnit
	case Wavelength:
		return wavelengthUnit
	case Wavenumber:
		return wavenumberUnit
	}
	return ""
}

// ConvertMeasurement tags value with the unit the instrument reports m in and
// converts it to target. For Power, pu must give the instrument's power unit;
// dBm readings are linearised before conversion and "dBm" is accepted as a
// target. Environment and All readings carry two quantities and cannot be
// converted.
func ConvertMeasurement(c Converter, value float64, m Measurement, target string, pu PowerUnit) (units.Quantity, error) {
	var q units.Quantity
	switch m {
	case Power:
		switch pu {
		case DBm:
			value = DBmToMilliwatt(value)
		case MilliWatt:
		default:
			return units.Quantity{}, fmt.Errorf("%w: power unit must be given to convert power", ErrInvalidArgument)
		}
		if target == dBmUnit {
			if value <= 0 {
				return units.Quantity{}, fmt.Errorf("%w: %g mW has no dBm representation", ErrInvalidArgument, value)
			}
			return units.Quantity{Value: MilliwattToDBm(value), Unit: dBmUnit}, nil
		}
		q = units.Quantity{Value: value, Unit: powerUnit}
	case Frequency:
		q = units.Quantity{Value: value, Unit: frequencyUnit}
	case Wavelength:
		q = units.Quantity{Value: value, Unit: wavelengthUnit}
	case Wavenumber:
		q = units.Quantity{Value: value, Unit: wavenumberUnit}
	default:
		return units.Quantity{}, fmt.Errorf("%w for %s data", ErrUnsupportedConversion, m)
	}
	return c.Convert(q, target)
}
