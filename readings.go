// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

// Convenience wrappers around Scalar, Environment and All. FETCH returns the
// reading from the last completed scan, READ from the scan in progress and
// MEASURE from the next scan.

// FetchWavelength returns the wavelength in nm (FETCH:WAVELENGTH?).
func (w *Wavemeter) FetchWavelength() (float64, error) { return w.Scalar(Fetch, Wavelength) }

// ReadWavelength returns the wavelength in nm (READ:WAVELENGTH?).
func (w *Wavemeter) ReadWavelength() (float64, error) { return w.Scalar(Read, Wavelength) }

// MeasureWavelength returns the wavelength in nm (MEASURE:WAVELENGTH?).
func (w *Wavemeter) MeasureWavelength() (float64, error) { return w.Scalar(Measure, Wavelength) }

// FetchFrequency returns the frequency in THz (FETCH:FREQUENCY?).
func (w *Wavemeter) FetchFrequency() (float64, error) { return w.Scalar(Fetch, Frequency) }

// ReadFrequency returns the frequency in THz (READ:FREQUENCY?).
func (w *Wavemeter) ReadFrequency() (float64, error) { return w.Scalar(Read, Frequency) }

// MeasureFrequency returns the frequency in THz (MEASURE:FREQUENCY?).
func (w *Wavemeter) MeasureFrequency() (float64, error) { return w.Scalar(Measure, Frequency) }

// FetchPower returns the power in mW or dBm (FETCH:POWER?).
func (w *Wavemeter) FetchPower() (float64, error) { return w.Scalar(Fetch, Power) }

// ReadPower returns the power in mW or dBm (READ:POWER?).
func (w *Wavemeter) ReadPower() (float64, error) { return w.Scalar(Read, Power) }

// MeasurePower returns the power in mW or dBm (MEASURE:POWER?).
func (w *Wavemeter) MeasurePower() (float64, error) { return w.Scalar(Measure, Power) }

// FetchWavenumber returns the wavenumber in 1/cm (FETCH:WAVENUMBER?).
func (w *Wavemeter) FetchWavenumber() (float64, error) { return w.Scalar(Fetch, Wavenumber) }

// ReadWavenumber returns the wavenumber in 1/cm (READ:WAVENUMBER?).
func (w *Wavemeter) ReadWavenumber() (float64, error) { return w.Scalar(Read, Wavenumber) }

// MeasureWavenumber returns the wavenumber in 1/cm (MEASURE:WAVENUMBER?).
func (w *Wavemeter) MeasureWavenumber() (float64, error) { return w.Scalar(Measure, Wavenumber) }

// FetchEnvironment returns temperature and pressure (FETCH:ENVIRONMENT?).
func (w *Wavemeter) FetchEnvironment() (Environment, error) { return w.Environment(Fetch) }

// ReadEnvironment returns temperature and pressure (READ:ENVIRONMENT?).
func (w *Wavemeter) ReadEnvironment() (Environment, error) { return w.Environment(Read) }

// MeasureEnvironment returns temperature and pressure (MEASURE:ENVIRONMENT?).
func (w *Wavemeter) MeasureEnvironment() (Environment, error) { return w.Environment(Measure) }

// FetchAll returns the full scan record (FETCH:ALL?).
func (w *Wavemeter) FetchAll() (WavemeterData, error) { return w.All(Fetch) }

// ReadAll returns the full scan record (READ:ALL?).
func (w *Wavemeter) ReadAll() (WavemeterData, error) { return w.All(Read) }

// MeasureAll returns the full scan record (MEASURE:ALL?).
func (w *Wavemeter) MeasureAll() (WavemeterData, error) { return w.All(Measure) }
