package units

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestConvert(t *testing.T) {
	r := NewRegistry()
	for _, tc := range []struct {
		q      Quantity
		target string
		want   float64
	}{
		{Quantity{1550, "nm"}, "um", 1.55},
		{Quantity{1550, "nm"}, "µm", 1.55},
		{Quantity{632.8, "nanometer"}, "Å", 6328},
		{Quantity{193.4, "THz"}, "Hz", 193.4e12},
		{Quantity{1, "mW"}, "uW", 1000},
		{Quantity{2.5, "W"}, " mW ", 2500},
		{Quantity{1, "1/cm"}, "1/m", 100},
		{Quantity{6451.6, "kayser"}, "cm^-1", 6451.6},
		{Quantity{42, "pW"}, "pW", 42},
	} {
		got, err := r.Convert(tc.q, tc.target)
		if err != nil {
			t.Errorf("%v -> %q: %v", tc.q, tc.target, err)
			continue
		}
		if math.Abs(got.Value-tc.want) > 1e-9*math.Max(1, math.Abs(tc.want)) || got.Unit != tc.target {
			t.Errorf("%v -> %q = %v, want %g", tc.q, tc.target, got, tc.want)
		}
	}
}

func TestConvertErrors(t *testing.T) {
	r := NewRegistry()
	for _, tc := range []struct {
		q      Quantity
		target string
		want   error
	}{
		{Quantity{1, "nm"}, "THz", ErrIncommensurate},
		{Quantity{1, "1/cm"}, "cm", ErrIncommensurate},
		{Quantity{1, "mW"}, "MW", ErrUnknownUnit},
		{Quantity{1, "dBm"}, "mW", ErrUnknownUnit},
		{Quantity{1, ""}, "nm", ErrUnknownUnit},
	} {
		if _, err := r.Convert(tc.q, tc.target); !errors.Is(err, tc.want) {
			t.Errorf("%v -> %q: err = %v, want %v", tc.q, tc.target, err, tc.want)
		}
	}
}

func TestDefine(t *testing.T) {
	r := NewRegistry()
	if err := r.Define(Length, 1e-15, "fm", "femtometer"); err != nil {
		t.Fatal(err)
	}
	q, err := r.Convert(Quantity{1, "pm"}, "fm")
	if err != nil || math.Abs(q.Value-1000) > 1e-9 {
		t.Errorf("pm -> fm = %v, %v", q, err)
	}
	if d, err := r.Dimension("femtometer"); err != nil || d != Length {
		t.Errorf("Dimension(femtometer) = %v, %v", d, err)
	}

	if err := r.Define(Length, 1, "nm"); err == nil {
		t.Error("redefining nm succeeded")
	}
	if err := r.Define(Power, 0, "zero"); err == nil {
		t.Error("zero scale accepted")
	}
	if err := r.Define(Power, 1); err == nil {
		t.Error("nameless unit accepted")
	}
	// a failed Define leaves the registry unchanged
	if err := r.Define(Power, 1, "newname", "W"); err == nil {
		t.Error("partially duplicate names accepted")
	}
	if _, err := r.Dimension("newname"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("newname defined by failed Define: %v", err)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	if err := a.Define(Power, 1e-15, "fW"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Dimension("fW"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("definition leaked between registries: %v", err)
	}
}

func TestConcurrentUse(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Define(Frequency, float64(i+1)*1e18, "custom"+string(rune('a'+i)))
			}
			if _, err := r.Convert(Quantity{1, "GHz"}, "MHz"); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
}

func TestStrings(t *testing.T) {
	if s := (Quantity{1.55, "um"}).String(); s != "1.55 um" {
		t.Errorf("Quantity.String() = %q", s)
	}
	if s := Wavenumber.String(); s != "wavenumber" {
		t.Errorf("Wavenumber.String() = %q", s)
	}
	if s := Dimension(0).String(); s != "Dimension(0)" {
		t.Errorf("Dimension(0).String() = %q", s)
	}
}
