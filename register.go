// Copyright (c) 2024–2026 The bristol671 developers. All rights reserved.
// Project site: https://github.com/gotmc/bristol671
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package bristol671

import (
	"fmt"
	"sort"
	"strings"
)

// BitName is the symbolic name of a register bit.
type BitName string

// Bits of the standard event status (*ESR?) and event status enable (*ESE?)
// registers.
const (
	PowerOn              BitName = "POWER_ON"
	CommandError         BitName = "COMMAND_ERROR"
	ExecutionError       BitName = "EXECUTION_ERROR"
	DeviceDependentError BitName = "DEVICE_DEPENDENT_ERROR"
	QueryError           BitName = "QUERY_ERROR"
	OperationComplete    BitName = "OPERATION_COMPLETE"
)

// Bits of the instrument status byte (*STB?).
const (
	QuestionableSummary BitName = "BIT_SET_QUESTIONABLE_REGISTER"
	ErrorQueueSummary   BitName = "ERRORS_IN_ERROR_QUEUE"
	EventStatusSummary  BitName = "BIT_SET_EVENT_STATUS_REGISTER"
)

// Bits of the questionable status register (STATUS:QUESTIONABLE:CONDITION?).
const (
	WavelengthAlreadyRead       BitName = "WAVELENGTH_ALREADY_READ"
	PowerOutOfRange             BitName = "POWER_OUT_OF_RANGE"
	TemperatureOutOfRange       BitName = "TEMPERATURE_OUT_OF_RANGE"
	WavelengthOutOfRange        BitName = "WAVELENGTH_OUT_OF_RANGE"
	PressureOutOfRange          BitName = "PRESSURE_OUT_OF_RANGE"
	ReferenceLaserNotStabilized BitName = "REFERENCE_LASER_NOT_STABILIZED"
)

// layout fixes the width, bit meanings and fault bits of one register kind.
// Layouts are built once at package initialization and shared read-only by
// every Register of that kind.
type layout struct {
	name   string
	width  uint
	index  map[BitName]uint
	names  map[uint]BitName
	faults []uint
}

func newLayout(name string, width uint, bits map[BitName]uint, faults ...uint) (*layout, error) {
	if width == 0 || width > 32 {
		return nil, fmt.Errorf("%w: register width %d, must be 1-32", ErrInvalidArgument, width)
	}
	l := &layout{
		name:   name,
		width:  width,
		index:  make(map[BitName]uint, len(bits)),
		names:  make(map[uint]BitName, len(bits)),
		faults: append([]uint(nil), faults...),
	}
	for n, i := range bits {
		if i >= width {
			return nil, fmt.Errorf("%w: bit %s (%d) outside %d-bit %s register", ErrInvalidArgument, n, i, width, name)
		}
		l.index[n] = i
		l.names[i] = n
	}
	for _, f := range l.faults {
		if _, ok := l.names[f]; !ok {
			return nil, fmt.Errorf("%w: fault bit %d has no meaning in %s register", ErrInvalidArgument, f, name)
		}
	}
	sort.Slice(l.faults, func(a, b int) bool { return l.faults[a] < l.faults[b] })
	return l, nil
}

func mustLayout(name string, width uint, bits map[BitName]uint, faults ...uint) *layout {
	l, err := newLayout(name, width, bits, faults...)
	if err != nil {
		panic(err)
	}
	return l
}

var (
	eventStatusBits = map[BitName]uint{
		PowerOn:              7,
		CommandError:         5,
		ExecutionError:       4,
		DeviceDependentError: 3,
		QueryError:           2,
		OperationComplete:    0,
	}

	eventStatusEnableLayout = mustLayout("EventStatusEnable", 8, eventStatusBits, 2, 3, 4, 5)
	eventStatusLayout       = mustLayout("EventStatus", 8, eventStatusBits, 2, 3, 4, 5)

	statusByteLayout = mustLayout("InstrumentStatusByte", 6, map[BitName]uint{
		QuestionableSummary: 5,
		ErrorQueueSummary:   3,
		EventStatusSummary:  2,
	}, 3)

	questionableLayout = mustLayout("QuestionableStatus", 11, map[BitName]uint{
		WavelengthAlreadyRead:       0,
		PowerOutOfRange:             3,
		TemperatureOutOfRange:       4,
		WavelengthOutOfRange:        5,
		PressureOutOfRange:          9,
		ReferenceLaserNotStabilized: 10,
	}, 0, 3, 4, 5, 9, 10)
)

// Register is a view over an n-bit instrument status or condition word. Bits
// at or beyond the register width are not part of the register: Bit reports 0
// for them and SetBit rejects them.
type Register struct {
	value  uint32
	layout *layout
}

// NewRegister builds a register of arbitrary shape. Every fault bit must have
// a meaning in bits, and every meaning must lie inside width.
func NewRegister(name string, value uint32, width uint, bits map[BitName]uint, faults ...uint) (Register, error) {
	l, err := newLayout(name, width, bits, faults...)
	if err != nil {
		return Register{}, err
	}
	return Register{value: value, layout: l}, nil
}

// NewEventStatusEnableRegister wraps a *ESE? value.
func NewEventStatusEnableRegister(value uint32) Register {
	return Register{value: value, layout: eventStatusEnableLayout}
}

// NewEventStatusRegister wraps a *ESR? value.
func NewEventStatusRegister(value uint32) Register {
	return Register{value: value, layout: eventStatusLayout}
}

// NewInstrumentStatusByte wraps a *STB? value.
func NewInstrumentStatusByte(value uint32) Register {
	return Register{value: value, layout: statusByteLayout}
}

// NewQuestionableStatusRegister wraps a STATUS:QUESTIONABLE:CONDITION? or
// STATUS:QUESTIONABLE:ENABLE? value.
func NewQuestionableStatusRegister(value uint32) Register {
	return Register{value: value, layout: questionableLayout}
}

// Name returns the register kind, e.g. "EventStatus".
func (r Register) Name() string { return r.layout.name }

// Value returns the raw register word.
func (r Register) Value() uint32 { return r.value }

// Width returns the number of bits in the register.
func (r Register) Width() uint { return r.layout.width }

// Bit returns bit i of the register, 0 or 1. Bits at or beyond Width are
// always 0, regardless of the raw value.
func (r Register) Bit(i uint) uint {
	if i >= r.layout.width {
		return 0
	}
	return uint(r.value>>i) & 1
}

// SetBit sets (v == 1) or clears (v == 0) bit i.
func (r *Register) SetBit(i uint, v uint) error {
	if v > 1 {
		return fmt.Errorf("%w: bit value %d, must be 0 or 1", ErrInvalidArgument, v)
	}
	if i >= r.layout.width {
		return fmt.Errorf("%w: bit %d outside %d-bit %s register", ErrInvalidArgument, i, r.layout.width, r.layout.name)
	}
	if v == 1 {
		r.value |= 1 << i
	} else {
		r.value &^= 1 << i
	}
	return nil
}

// ByName returns the bit with the given symbolic name.
func (r Register) ByName(name BitName) (uint, error) {
	i, err := r.indexOf(name)
	if err != nil {
		return 0, err
	}
	return r.Bit(i), nil
}

// SetByName sets or clears the bit with the given symbolic name.
func (r *Register) SetByName(name BitName, v uint) error {
	i, err := r.indexOf(name)
	if err != nil {
		return err
	}
	return r.SetBit(i, v)
}

func (r Register) indexOf(name BitName) (uint, error) {
	i, ok := r.layout.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a bit of the %s register", ErrInvalidArgument, name, r.layout.name)
	}
	return i, nil
}

// SetBits returns the indices of all set bits, in ascending order.
func (r Register) SetBits() []uint {
	var bits []uint
	for i := uint(0); i < r.layout.width; i++ {
		if r.Bit(i) == 1 {
			bits = append(bits, i)
		}
	}
	return bits
}

// SetNames returns the symbolic names of all set bits, in ascending bit
// order. Reserved bits without a name are omitted.
func (r Register) SetNames() []BitName {
	var names []BitName
	for _, i := range r.SetBits() {
		if n, ok := r.layout.names[i]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Faults returns the indices of set bits that indicate an abnormal condition.
func (r Register) Faults() []uint {
	var faults []uint
	for _, f := range r.layout.faults {
		if r.Bit(f) == 1 {
			faults = append(faults, f)
		}
	}
	return faults
}

// IsOK reports whether no fault bit is set.
func (r Register) IsOK() bool { return len(r.Faults()) == 0 }

func (r Register) String() string {
	names := r.SetNames()
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}
	return fmt.Sprintf("%sRegister(%s)", r.layout.name, strings.Join(s, ", "))
}
