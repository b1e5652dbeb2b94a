// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

// fakeInstrument answers queries from a table. SYST:ERR? pops entries from
// queue, then reports NO_ERROR.
type fakeInstrument struct {
	mu       sync.Mutex
	replies  map[string]string
	queue    []string
	sent     []string
	inFlight int
	overlap  bool
	closed   bool

	// onQuery, if set, runs while a query is being answered.
	onQuery func(cmd string)
}

func (f *fakeInstrument) Command(format string, a ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeInstrument) Query(cmd string) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.sent = append(f.sent, cmd)
	hook := f.onQuery
	f.mu.Unlock()
	if hook != nil {
		hook(cmd)
	}
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	f.mu.Lock()
	defer f.mu.Unlock()
	if cmd == "SYST:ERR?" {
		if len(f.queue) == 0 {
			return "0,\"No error\"\r\n", nil
		}
		e := f.queue[0]
		f.queue = f.queue[1:]
		return e + "\r\n", nil
	}
	s, ok := f.replies[cmd]
	if !ok {
		return "", fmt.Errorf("no reply to %s", cmd)
	}
	return s + "\r\n", nil
}

func (f *fakeInstrument) Close() error {
	f.closed = true
	return nil
}

func newTestMeter(t *testing.T, f *fakeInstrument, opts ...Option) *Wavemeter {
	t.Helper()
	logger, _ := test.NewNullLogger()
	wm, err := New(f, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return wm
}

func TestNew(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil transport: %v", err)
	}
	if _, err := New(&fakeInstrument{}, WithMaxErrorReads(0)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero max error reads: %v", err)
	}
	f := &fakeInstrument{}
	wm := newTestMeter(t, f)
	if err := wm.Close(); err != nil || !f.closed {
		t.Errorf("Close: %v, closed %t", err, f.closed)
	}
}

func TestCommonCommands(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{
		"*IDN?": "BRISTOL WAVELENGTH METER, 671A-NIR, 6894, 2.3.0",
		"*OPC?": "1",
	}}
	wm := newTestMeter(t, f)
	for _, fn := range []func() error{wm.ClearStatus, wm.Reset, wm.RestoreState, wm.SaveState} {
		if err := fn(); err != nil {
			t.Fatal(err)
		}
	}
	idn, err := wm.Identify()
	if err != nil || idn != "BRISTOL WAVELENGTH METER, 671A-NIR, 6894, 2.3.0" {
		t.Errorf("Identify = %q, %v", idn, err)
	}
	if opc, err := wm.OperationComplete(); err != nil || opc != 1 {
		t.Errorf("OperationComplete = %d, %v", opc, err)
	}
	want := "*CLS|*RST|*RCL|*SAV|*IDN?|*OPC?"
	if got := strings.Join(f.sent, "|"); got != want {
		t.Errorf("sent %q, want %q", got, want)
	}
}

func TestMeasurements(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{
		"FETC:WAV?":  "1550.12345",
		"READ:FREQ?": "193.40000",
		"MEAS:POW?":  "0.500",
		"FETC:WNUM?": "6451.10",
		"MEAS:ENV?":  "23.5 C, 760.2 MMHG",
		"READ:ALL?":  "42, 0, 1550.12345, 0.5",
		"FETC:ENV?":  "23.5, 760.2",
	}}
	wm := newTestMeter(t, f)

	for _, tc := range []struct {
		name string
		read func() (float64, error)
		want float64
	}{
		{"FetchWavelength", wm.FetchWavelength, 1550.12345},
		{"ReadFrequency", wm.ReadFrequency, 193.4},
		{"MeasurePower", wm.MeasurePower, 0.5},
		{"FetchWavenumber", wm.FetchWavenumber, 6451.1},
	} {
		got, err := tc.read()
		if err != nil || got != tc.want {
			t.Errorf("%s = %g, %v; want %g", tc.name, got, err, tc.want)
		}
	}

	env, err := wm.MeasureEnvironment()
	if err != nil || env != (Environment{23.5, 760.2}) {
		t.Errorf("MeasureEnvironment = %+v, %v", env, err)
	}
	d, err := wm.ReadAll()
	if err != nil || d != (WavemeterData{42, 0, 1550.12345, 0.5}) {
		t.Errorf("ReadAll = %+v, %v", d, err)
	}
	if _, err := wm.FetchEnvironment(); !errors.Is(err, ErrParse) {
		t.Errorf("FetchEnvironment without units: %v", err)
	}
	if _, err := wm.Scalar(Fetch, EnvironmentData); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Scalar(ENVIRONMENT): %v", err)
	}
	if _, err := wm.FetchFrequency(); err == nil || errors.Is(err, ErrParse) {
		t.Errorf("transport failure should pass through: %v", err)
	}
}

func TestConvert(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{
		"FETC:WAV?": "1550",
		"FETC:POW?": "10",
		"UNIT:POW?": "DBM",
	}}
	wm := newTestMeter(t, f)

	q, err := wm.Convert(Fetch, Wavelength, "um")
	if err != nil || math.Abs(q.Value-1.55) > 1e-12 || q.Unit != "um" {
		t.Errorf("wavelength in um = %v, %v", q, err)
	}
	q, err = wm.Convert(Fetch, Power, "mW")
	if err != nil || math.Abs(q.Value-10) > 1e-9 {
		t.Errorf("10 dBm in mW = %v, %v", q, err)
	}
	if _, err := wm.Convert(Fetch, AllData, "nm"); !errors.Is(err, ErrUnsupportedConversion) {
		t.Errorf("ALL: %v", err)
	}

	f.replies["UNIT:POW?"] = "W"
	if _, err := wm.Convert(Fetch, Power, "mW"); !errors.Is(err, ErrParse) {
		t.Errorf("unknown power unit: %v", err)
	}
}

func TestConvertHoldsPowerUnit(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{
		"FETC:POW?": "0",
		"UNIT:POW?": "DBM",
	}}
	wm := newTestMeter(t, f)
	done := make(chan error, 1)
	f.onQuery = func(cmd string) {
		if cmd != "UNIT:POW?" {
			return
		}
		go func() { done <- wm.SetPowerUnit(MilliWatt) }()
		time.Sleep(20 * time.Millisecond)
	}

	q, err := wm.Convert(Fetch, Power, "mW")
	if err != nil || math.Abs(q.Value-1) > 1e-12 {
		t.Errorf("0 dBm in mW = %v, %v", q, err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got, want := strings.Join(f.sent, "|"), "UNIT:POW?|FETC:POW?|UNIT:POW MW"; got != want {
		t.Errorf("sent %q, want %q", got, want)
	}
}

func TestScalarWithUnit(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{
		"READ:POW?":  "2.5",
		"UNIT:POW?":  "MW",
		"MEAS:FREQ?": "193.4",
	}}
	wm := newTestMeter(t, f)
	if v, pu, err := wm.ScalarWithUnit(Read, Power); err != nil || v != 2.5 || pu != MilliWatt {
		t.Errorf("power = %g %v, %v", v, pu, err)
	}
	if v, pu, err := wm.ScalarWithUnit(Measure, Frequency); err != nil || v != 193.4 || pu != UnknownPowerUnit {
		t.Errorf("frequency = %g %v, %v", v, pu, err)
	}
	if _, _, err := wm.ScalarWithUnit(Fetch, EnvironmentData); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("environment: %v", err)
	}
}

func TestRegisters(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{
		"*ESE?":           "60",
		"*ESR?":           "32",
		"*STB?":           "8",
		"STAT:QUES:COND?": "512",
		"STAT:QUES:ENAB?": "0",
	}}
	wm := newTestMeter(t, f)

	esr, err := wm.EventStatusRegister()
	if err != nil || esr.IsOK() {
		t.Errorf("ESR %v, %v", esr, err)
	}
	stb, err := wm.StatusRegister()
	if err != nil || stb.IsOK() {
		t.Errorf("STB %v, %v", stb, err)
	}
	q, err := wm.QuestionableConditionRegister()
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := q.ByName(PressureOutOfRange); b != 1 {
		t.Errorf("questionable %v lacks PRESSURE_OUT_OF_RANGE", q)
	}

	ese, err := wm.EventStatusEnableRegister()
	if err != nil {
		t.Fatal(err)
	}
	if err := ese.SetByName(PowerOn, 1); err != nil {
		t.Fatal(err)
	}
	if err := wm.SetEventStatusEnableRegister(ese); err != nil {
		t.Fatal(err)
	}
	qe, err := wm.QuestionableEnableRegister()
	if err != nil {
		t.Fatal(err)
	}
	qe.SetByName(ReferenceLaserNotStabilized, 1)
	if err := wm.SetQuestionableEnableRegister(qe); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(f.sent, "|"), "*ESE 188|STAT:QUES:ENAB?|STAT:QUES:ENAB 1024") {
		t.Errorf("sent %q", f.sent)
	}

	// registers are written back only to their own kind
	if err := wm.SetEventStatusEnableRegister(q); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("questionable written as ESE: %v", err)
	}
	if err := wm.SetQuestionableEnableRegister(esr); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ESR written as questionable enable: %v", err)
	}
	for _, v := range []int{-1, 256} {
		if err := wm.SetEventStatusEnable(v); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetEventStatusEnable(%d): %v", v, err)
		}
	}
	if err := wm.SetQuestionableEnable(2048); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetQuestionableEnable(2048): %v", err)
	}

	f.replies["*STB?"] = "-1"
	if _, err := wm.StatusByte(); !errors.Is(err, ErrParse) {
		t.Errorf("negative status byte: %v", err)
	}
}

func TestAveraging(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{
		"SENS:AVER:STAT?":       "OFF",
		"SENS:AVER:COUN?":       "20",
		"SENS:AVER:DATA? POWER": "0.42",
	}}
	wm := newTestMeter(t, f)
	if on, err := wm.AverageState(); err != nil || on {
		t.Errorf("AverageState = %t, %v", on, err)
	}
	if n, err := wm.AverageCount(); err != nil || n != 20 {
		t.Errorf("AverageCount = %d, %v", n, err)
	}
	if v, err := wm.AverageData(Power); err != nil || v != 0.42 {
		t.Errorf("AverageData(POWER) = %g, %v", v, err)
	}
	if _, err := wm.AverageData(AllData); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("AverageData(ALL): %v", err)
	}
	if err := wm.SetAverageState(true); err != nil {
		t.Fatal(err)
	}
	if err := wm.SetAverageCount(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetAverageCount(0): %v", err)
	}
	if err := wm.SetAverageCount(5); err != nil {
		t.Fatal(err)
	}
	if err := wm.SetPowerUnit(MilliWatt); err != nil {
		t.Fatal(err)
	}
	if err := wm.SetPowerUnit(UnknownPowerUnit); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetPowerUnit(unknown): %v", err)
	}
	sent := strings.Join(f.sent, "|")
	for _, want := range []string{"SENS:AVER:STAT ON", "SENS:AVER:COUN 5", "UNIT:POW MW"} {
		if !strings.Contains(sent, want) {
			t.Errorf("%q not sent: %q", want, sent)
		}
	}
	if strings.Contains(sent, "SENS:AVER:COUN 0") {
		t.Error("invalid count reached the instrument")
	}

	f.replies["SENS:AVER:STAT?"] = "MAYBE"
	if _, err := wm.AverageState(); !errors.Is(err, ErrParse) {
		t.Errorf("bad state: %v", err)
	}
}

func TestErrorQueueMethods(t *testing.T) {
	f := &fakeInstrument{queue: []string{`-221,"Settings conflict"`}}
	wm := newTestMeter(t, f)
	code, msg, err := wm.SystemError()
	if err != nil || code != SettingsConflict || msg != "Settings conflict" {
		t.Errorf("SystemError = %v, %q, %v", code, msg, err)
	}
	code, _, err = wm.SystemError()
	if err != nil || code != NoError {
		t.Errorf("SystemError on empty queue = %v, %v", code, err)
	}

	f.queue = []string{`-104,"Data type error"`, `-103,"Invalid separator"`}
	entries, err := wm.DrainErrorQueue(true)
	var qe *QueueError
	if !errors.As(err, &qe) || len(entries) != 3 {
		t.Fatalf("DrainErrorQueue = %v, %v", entries, err)
	}

	f.queue = []string{`-104,"a"`, `-104,"b"`, `-104,"c"`}
	wm = newTestMeter(t, f, WithMaxErrorReads(2))
	if _, err := wm.DrainErrorQueue(false); !errors.Is(err, ErrQueueNotTerminated) {
		t.Errorf("bounded drain: %v", err)
	}
}

func TestSerializedAccess(t *testing.T) {
	f := &fakeInstrument{replies: map[string]string{"FETC:WAV?": "1550.0"}}
	wm := newTestMeter(t, f)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := wm.FetchWavelength(); err != nil {
				t.Error(err)
			}
			if _, err := wm.DrainErrorQueue(false); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if f.overlap {
		t.Error("two queries were in flight at once")
	}
}
