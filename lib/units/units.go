// Package units converts scalar physical quantities between units of the same
// dimension. It covers the quantities a wavelength meter reports: optical
// power, frequency, wavelength and wavenumber.
package units

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrUnknownUnit is returned for unit names the registry does not define.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrIncommensurate is returned when the target unit measures a different
	// dimension than the source quantity.
	ErrIncommensurate = errors.New("units are not commensurate")
)

// Dimension is the physical dimension measured by a unit.
type Dimension int

// Dimensions known to the registry.
const (
	Power Dimension = iota + 1
	Frequency
	Length
	Wavenumber
)

var dimensionDesc = map[Dimension]string{
	Power:      "power",
	Frequency:  "frequency",
	Length:     "length",
	Wavenumber: "wavenumber",
}

func (d Dimension) String() string {
	if s, ok := dimensionDesc[d]; ok {
		return s
	}
	return fmt.Sprintf("Dimension(%d)", int(d))
}

// Quantity is a value tagged with the unit it is expressed in.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

type unitDef struct {
	dim   Dimension
	scale float64 // multiply by scale to get the SI coherent unit
}

// Registry holds unit definitions. The zero value is not usable; create one
// with NewRegistry. A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	units map[string]unitDef
}

// NewRegistry returns a registry populated with the SI units (and common
// spectroscopy aliases) for power, frequency, length and wavenumber.
func NewRegistry() *Registry {
	r := &Registry{units: make(map[string]unitDef)}
	for _, d := range defaults {
		if err := r.Define(d.dim, d.scale, d.names...); err != nil {
			panic(err)
		}
	}
	return r
}

// Define adds a unit under one or more names. Names are case sensitive
// ("mW" is not "MW"). Redefining an existing name is an error.
func (r *Registry) Define(dim Dimension, scale float64, names ...string) error {
	if scale <= 0 {
		return fmt.Errorf("units: scale %g must be positive", scale)
	}
	if len(names) == 0 {
		return errors.New("units: at least one name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if _, ok := r.units[n]; ok {
			return fmt.Errorf("units: %q already defined", n)
		}
	}
	for _, n := range names {
		r.units[n] = unitDef{dim: dim, scale: scale}
	}
	return nil
}

// Dimension returns the dimension measured by the named unit.
func (r *Registry) Dimension(unit string) (Dimension, error) {
	def, err := r.lookup(unit)
	if err != nil {
		return 0, err
	}
	return def.dim, nil
}

func (r *Registry) lookup(unit string) (unitDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.units[strings.TrimSpace(unit)]
	if !ok {
		return unitDef{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	return def, nil
}

// Convert expresses q in the target unit.
func (r *Registry) Convert(q Quantity, target string) (Quantity, error) {
	from, err := r.lookup(q.Unit)
	if err != nil {
		return Quantity{}, err
	}
	to, err := r.lookup(target)
	if err != nil {
		return Quantity{}, err
	}
	if from.dim != to.dim {
		return Quantity{}, fmt.Errorf("%w: cannot convert %s (%s) to %s (%s)",
			ErrIncommensurate, q.Unit, from.dim, target, to.dim)
	}
	return Quantity{Value: q.Value * from.scale / to.scale, Unit: target}, nil
}
