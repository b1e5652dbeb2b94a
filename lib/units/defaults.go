package units

type definition struct {
	dim   Dimension
	scale float64
	names []string
}

var defaults = []definition{
	// power, SI unit watt
	{Power, 1e3, []string{"kW", "kilowatt"}},
	{Power, 1, []string{"W", "watt"}},
	{Power, 1e-3, []string{"mW", "milliwatt"}},
	{Power, 1e-6, []string{"uW", "µW", "microwatt"}},
	{Power, 1e-9, []string{"nW", "nanowatt"}},
	{Power, 1e-12, []string{"pW", "picowatt"}},

	// frequency, SI unit hertz
	{Frequency, 1, []string{"Hz", "hertz"}},
	{Frequency, 1e3, []string{"kHz", "kilohertz"}},
	{Frequency, 1e6, []string{"MHz", "megahertz"}},
	{Frequency, 1e9, []string{"GHz", "gigahertz"}},
	{Frequency, 1e12, []string{"THz", "terahertz"}},
	{Frequency, 1e15, []string{"PHz", "petahertz"}},

	// length, SI unit meter
	{Length, 1, []string{"m", "meter", "metre"}},
	{Length, 1e-2, []string{"cm", "centimeter", "centimetre"}},
	{Length, 1e-3, []string{"mm", "millimeter", "millimetre"}},
	{Length, 1e-6, []string{"um", "µm", "micrometer", "micrometre", "micron"}},
	{Length, 1e-9, []string{"nm", "nanometer", "nanometre"}},
	{Length, 1e-10, []string{"Å", "angstrom"}},
	{Length, 1e-12, []string{"pm", "picometer", "picometre"}},

	// wavenumber, SI unit inverse meter
	{Wavenumber, 1, []string{"1/m", "m^-1", "/m", "inverse_meter"}},
	{Wavenumber, 1e2, []string{"1/cm", "cm^-1", "/cm", "inverse_centimeter", "kayser"}},
	{Wavenumber, 1e3, []string{"1/mm", "mm^-1", "/mm", "inverse_millimeter"}},
}
