// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package bristol671 controls a Bristol Instruments 671 wavelength meter over
// SCPI. It decodes the instrument's replies, status registers and error
// queue, and converts readings between units.
package bristol671

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gotmc/query"
	"github.com/sirupsen/logrus"

	"github.com/gotmc/bristol671/lib/units"
)

// Transport sends SCPI commands to the instrument and reads replies. Query
// performs one blocking round trip and returns one line. lib/transport.Conn
// implements it.
type Transport interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
}

// Wavemeter models a Bristol 671 wavelength meter. Calls are serialized, so a
// Wavemeter may be shared between goroutines; the instrument only ever sees
// one request in flight.
type Wavemeter struct {
	mu            sync.Mutex
	t             Transport
	log           logrus.FieldLogger
	conv          Converter
	maxErrorReads int
}

// Option applies an option to the wavemeter.
type Option func(*Wavemeter)

// WithLogger sets the logger used to trace commands and replies at debug
// level.
func WithLogger(l logrus.FieldLogger) Option { return func(w *Wavemeter) { w.log = l } }

// WithUnits sets the converter used by Convert. The default is a fresh
// units.Registry.
func WithUnits(c Converter) Option { return func(w *Wavemeter) { w.conv = c } }

// WithMaxErrorReads bounds the number of SYSTEM:ERROR? reads made by
// DrainErrorQueue.
func WithMaxErrorReads(n int) Option { return func(w *Wavemeter) { w.maxErrorReads = n } }

// New creates a Wavemeter that talks over t.
func New(t Transport, opts ...Option) (*Wavemeter, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidArgument)
	}
	w := &Wavemeter{
		t:             t,
		log:           logrus.StandardLogger(),
		maxErrorReads: DefaultMaxErrorReads,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.conv == nil {
		w.conv = units.NewRegistry()
	}
	if w.maxErrorReads <= 0 {
		return nil, fmt.Errorf("%w: max error reads must be > 0, got %d", ErrInvalidArgument, w.maxErrorReads)
	}
	return w, nil
}

// Close closes the underlying transport if it is an io.Closer.
func (w *Wavemeter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// command sends cmd; the caller holds w.mu.
func (w *Wavemeter) command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	w.log.WithField("cmd", cmd).Debug("bristol671 command")
	if err := w.t.Command(cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

// queryLine sends cmd and returns the reply without line terminators; the
// caller holds w.mu.
func (w *Wavemeter) queryLine(cmd string) (string, error) {
	s, err := query.String(w.t, cmd)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmd, err)
	}
	s = strings.TrimRight(s, "\r\n")
	w.log.WithFields(logrus.Fields{"cmd": cmd, "reply": s}).Debug("bristol671 query")
	return s, nil
}

func (w *Wavemeter) write(format string, a ...any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.command(format, a...)
}

func (w *Wavemeter) ask(cmd string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queryLine(cmd)
}

func (w *Wavemeter) askFloat(cmd string) (float64, error) {
	s, err := w.ask(cmd)
	if err != nil {
		return 0, err
	}
	return ParseFloat(strings.TrimSuffix(cmd, "?"), s)
}

func (w *Wavemeter) askInt(cmd string) (int, error) {
	s, err := w.ask(cmd)
	if err != nil {
		return 0, err
	}
	return ParseInt(strings.TrimSuffix(cmd, "?"), s)
}

func (w *Wavemeter) askRegister(cmd string) (uint32, error) {
	i, err := w.askInt(cmd)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, &ParseError{
			Context: strings.TrimSuffix(cmd, "?"),
			Raw:     fmt.Sprint(i),
			Err:     errors.New("negative register value"),
		}
	}
	return uint32(i), nil
}

// ClearStatus clears the event status register and the error queue (*CLS).
func (w *Wavemeter) ClearStatus() error { return w.write("*CLS") }

// Reset restores the instrument's default settings (*RST).
func (w *Wavemeter) Reset() error { return w.write("*RST") }

// RestoreState recalls the settings last saved with SaveState (*RCL).
func (w *Wavemeter) RestoreState() error { return w.write("*RCL") }

// SaveState saves the instrument settings (*SAV).
func (w *Wavemeter) SaveState() error { return w.write("*SAV") }

// Identify returns the *IDN? string.
func (w *Wavemeter) Identify() (string, error) { return w.ask("*IDN?") }

// OperationComplete returns the *OPC? reply.
func (w *Wavemeter) OperationComplete() (int, error) { return w.askInt("*OPC?") }

// EventStatusEnable returns the raw *ESE? value.
func (w *Wavemeter) EventStatusEnable() (uint32, error) { return w.askRegister("*ESE?") }

// SetEventStatusEnable writes *ESE; v must be in [0, 255].
func (w *Wavemeter) SetEventStatusEnable(v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%w: *ESE value %d must be in range [0, 255]", ErrInvalidArgument, v)
	}
	return w.write("*ESE %d", v)
}

// EventStatus returns the raw *ESR? value. Reading clears the register on
// the instrument.
func (w *Wavemeter) EventStatus() (uint32, error) { return w.askRegister("*ESR?") }

// StatusByte returns the raw *STB? value.
func (w *Wavemeter) StatusByte() (uint32, error) { return w.askRegister("*STB?") }

// QuestionableCondition returns the raw questionable condition register.
func (w *Wavemeter) QuestionableCondition() (uint32, error) {
	return w.askRegister("STAT:QUES:COND?")
}

// QuestionableEnable returns the raw questionable enable register.
func (w *Wavemeter) QuestionableEnable() (uint32, error) {
	return w.askRegister("STAT:QUES:ENAB?")
}

// SetQuestionableEnable writes the questionable enable register; v must fit
// in 11 bits.
func (w *Wavemeter) SetQuestionableEnable(v int) error {
	if v < 0 || v >= 1<<questionableLayout.width {
		return fmt.Errorf("%w: questionable enable value %d must be in range [0, %d]",
			ErrInvalidArgument, v, 1<<questionableLayout.width-1)
	}
	return w.write("STAT:QUES:ENAB %d", v)
}

// EventStatusEnableRegister returns the *ESE? register.
func (w *Wavemeter) EventStatusEnableRegister() (Register, error) {
	v, err := w.EventStatusEnable()
	return NewEventStatusEnableRegister(v), err
}

// SetEventStatusEnableRegister writes r back with *ESE.
func (w *Wavemeter) SetEventStatusEnableRegister(r Register) error {
	if r.layout != eventStatusEnableLayout {
		return fmt.Errorf("%w: %s register written as EventStatusEnable", ErrInvalidArgument, r.Name())
	}
	return w.SetEventStatusEnable(int(r.Value()))
}

// EventStatusRegister returns the *ESR? register.
func (w *Wavemeter) EventStatusRegister() (Register, error) {
	v, err := w.EventStatus()
	return NewEventStatusRegister(v), err
}

// StatusRegister returns the *STB? instrument status byte.
func (w *Wavemeter) StatusRegister() (Register, error) {
	v, err := w.StatusByte()
	return NewInstrumentStatusByte(v), err
}

// QuestionableConditionRegister returns the questionable condition register.
func (w *Wavemeter) QuestionableConditionRegister() (Register, error) {
	v, err := w.QuestionableCondition()
	return NewQuestionableStatusRegister(v), err
}

// QuestionableEnableRegister returns the questionable enable register.
func (w *Wavemeter) QuestionableEnableRegister() (Register, error) {
	v, err := w.QuestionableEnable()
	return NewQuestionableStatusRegister(v), err
}

// SetQuestionableEnableRegister writes r back to the questionable enable
// register.
func (w *Wavemeter) SetQuestionableEnableRegister(r Register) error {
	if r.layout != questionableLayout {
		return fmt.Errorf("%w: %s register written as QuestionableStatus", ErrInvalidArgument, r.Name())
	}
	return w.SetQuestionableEnable(int(r.Value()))
}

// Scalar reads one of the scalar measurements: wavelength (nm), frequency
// (THz), power (mW or dBm, see PowerUnit) or wavenumber (1/cm).
func (w *Wavemeter) Scalar(method Method, m Measurement) (float64, error) {
	if !m.Scalar() {
		return 0, fmt.Errorf("%w: %s is not a scalar measurement", ErrInvalidArgument, m)
	}
	return w.askFloat(method.query(m))
}

// Environment reads the temperature (°C) and pressure (mmHg).
func (w *Wavemeter) Environment(method Method) (Environment, error) {
	s, err := w.ask(method.query(EnvironmentData))
	if err != nil {
		return Environment{}, err
	}
	return ParseEnvironment(s)
}

// All reads the scan index, instrument status, wavelength and power from one
// scan.
func (w *Wavemeter) All(method Method) (WavemeterData, error) {
	s, err := w.ask(method.query(AllData))
	if err != nil {
		return WavemeterData{}, err
	}
	return ParseScanRecord(s)
}

// ScalarWithUnit reads a scalar measurement like Scalar. For power it also
// reads the power unit the value is reported in; both queries are made
// without other callers interleaving. For the other measurements pu is
// UnknownPowerUnit.
func (w *Wavemeter) ScalarWithUnit(method Method, m Measurement) (v float64, pu PowerUnit, err error) {
	if !m.Scalar() {
		return 0, UnknownPowerUnit, fmt.Errorf("%w: %s is not a scalar measurement", ErrInvalidArgument, m)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if m == Power {
		s, err := w.queryLine("UNIT:POW?")
		if err != nil {
			return 0, UnknownPowerUnit, err
		}
		if pu, err = ParsePowerUnit(strings.TrimSpace(s)); err != nil {
			return 0, UnknownPowerUnit, err
		}
	}
	cmd := method.query(m)
	s, err := w.queryLine(cmd)
	if err != nil {
		return 0, UnknownPowerUnit, err
	}
	v, err = ParseFloat(strings.TrimSuffix(cmd, "?"), s)
	if err != nil {
		return 0, UnknownPowerUnit, err
	}
	return v, pu, nil
}

// Convert reads a scalar measurement and converts it to the target unit. For
// power the instrument's current power unit is read in the same exchange.
func (w *Wavemeter) Convert(method Method, m Measurement, target string) (units.Quantity, error) {
	if !m.Scalar() {
		return units.Quantity{}, fmt.Errorf("%w for %s data", ErrUnsupportedConversion, m)
	}
	v, pu, err := w.ScalarWithUnit(method, m)
	if err != nil {
		return units.Quantity{}, err
	}
	return ConvertMeasurement(w.conv, v, m, target, pu)
}

// Units returns the converter used by Convert.
func (w *Wavemeter) Units() Converter { return w.conv }

// AverageState reports whether averaging is on.
func (w *Wavemeter) AverageState() (bool, error) {
	s, err := w.ask("SENS:AVER:STAT?")
	if err != nil {
		return false, err
	}
	return ParseAverageState(s)
}

// SetAverageState turns averaging on or off.
func (w *Wavemeter) SetAverageState(on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	return w.write("SENS:AVER:STAT %s", state)
}

// AverageCount returns the number of samples averaged.
func (w *Wavemeter) AverageCount() (int, error) { return w.askInt("SENS:AVER:COUN?") }

// SetAverageCount sets the number of samples averaged; n must be > 0.
func (w *Wavemeter) SetAverageCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: average count must be > 0, got %d", ErrInvalidArgument, n)
	}
	return w.write("SENS:AVER:COUN %d", n)
}

// AverageData returns the average of the last AverageCount values of a scalar
// measurement.
func (w *Wavemeter) AverageData(m Measurement) (float64, error) {
	if !m.Scalar() {
		return 0, fmt.Errorf("%w: average data must be one of POWER, FREQUENCY, WAVELENGTH or WAVENUMBER, got %s",
			ErrInvalidArgument, m)
	}
	w.mu.Lock()
	s, err := query.Stringf(w.t, "SENS:AVER:DATA? %s", m)
	w.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("SENS:AVER:DATA? %s: %w", m, err)
	}
	return ParseFloat("SENS:AVER:DATA", strings.TrimRight(s, "\r\n"))
}

// PowerUnit returns the unit power readings are reported in.
func (w *Wavemeter) PowerUnit() (PowerUnit, error) {
	s, err := w.ask("UNIT:POW?")
	if err != nil {
		return UnknownPowerUnit, err
	}
	return ParsePowerUnit(strings.TrimSpace(s))
}

// SetPowerUnit sets the unit power readings are reported in.
func (w *Wavemeter) SetPowerUnit(u PowerUnit) error {
	tok, ok := powerUnitToken[u]
	if !ok {
		return fmt.Errorf("%w: power unit %v", ErrInvalidArgument, u)
	}
	return w.write("UNIT:POW %s", tok)
}

// SystemError pops one entry from the instrument's error queue.
func (w *Wavemeter) SystemError() (ErrorCode, string, error) {
	s, err := w.ask("SYST:ERR?")
	if err != nil {
		return 0, "", err
	}
	e, err := ParseQueueEntry(s)
	if err != nil {
		return 0, "", err
	}
	return e.Code, e.Message, nil
}

// DrainErrorQueue reads SYSTEM:ERROR? until the queue reports NO_ERROR. See
// the package level DrainErrorQueue for the error semantics.
func (w *Wavemeter) DrainErrorQueue(raiseOnError bool) ([]QueueEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries, err := DrainErrorQueue(func() (string, error) {
		return w.queryLine("SYST:ERR?")
	}, w.maxErrorReads, raiseOnError)
	if err == nil && len(entries) > 1 {
		w.log.WithField("entries", len(entries)-1).Warn("bristol671 error queue held active errors")
	}
	return entries, err
}
