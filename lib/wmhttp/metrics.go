package wmhttp

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gotmc/bristol671"
	"github.com/gotmc/bristol671/lib/units"
)

type metrics struct {
	reading     map[bristol671.Measurement]prometheus.Gauge
	temperature prometheus.Gauge
	pressure    prometheus.Gauge
	scanIndex   prometheus.Gauge
	errors      *prometheus.CounterVec
	duration    *prometheus.HistogramVec

	// last successful reading, unix nanoseconds
	last atomic.Int64
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		reading: map[bristol671.Measurement]prometheus.Gauge{
			bristol671.Wavelength: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bristol671_wavelength_nm",
				Help: "Last wavelength read, in nm.",
			}),
			bristol671.Frequency: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bristol671_frequency_thz",
				Help: "Last frequency read, in THz.",
			}),
			bristol671.Power: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bristol671_power",
				Help: "Last power read, in the instrument's power unit (mW or dBm).",
			}),
			bristol671.Wavenumber: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bristol671_wavenumber_inv_cm",
				Help: "Last wavenumber read, in 1/cm.",
			}),
		},
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bristol671_temperature_celsius",
			Help: "Temperature inside the instrument.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bristol671_pressure_mmhg",
			Help: "Pressure inside the instrument.",
		}),
		scanIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bristol671_scan_index",
			Help: "Scan index of the last ALL reading.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bristol671_errors_total",
			Help: "Failed requests by error kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bristol671_request_duration_seconds",
			Help:    "Time spent serving requests, instrument round trips included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	age := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bristol671_reading_age_seconds",
		Help: "Seconds since the last successful reading; -1 before the first.",
	}, func() float64 {
		last := m.last.Load()
		if last == 0 {
			return -1
		}
		return time.Since(time.Unix(0, last)).Seconds()
	})
	for _, g := range m.reading {
		reg.MustRegister(g)
	}
	reg.MustRegister(m.temperature, m.pressure, m.scanIndex, m.errors, m.duration, age)
	return m
}

func (m *metrics) touch() { m.last.Store(time.Now().UnixNano()) }

func (m *metrics) observeScalar(meas bristol671.Measurement, v float64) {
	if g, ok := m.reading[meas]; ok {
		g.Set(v)
		m.touch()
	}
}

func (m *metrics) observeEnvironment(e bristol671.Environment) {
	m.temperature.Set(e.Temperature)
	m.pressure.Set(e.Pressure)
	m.touch()
}

func (m *metrics) observeAll(d bristol671.WavemeterData) {
	m.scanIndex.Set(float64(d.ScanIndex))
	m.reading[bristol671.Wavelength].Set(d.Wavelength)
	m.reading[bristol671.Power].Set(d.Power)
	m.touch()
}

// Kind classifies err for the errors_total counter.
func Kind(err error) string {
	switch {
	case errors.Is(err, bristol671.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, bristol671.ErrUnsupportedConversion),
		errors.Is(err, units.ErrUnknownUnit),
		errors.Is(err, units.ErrIncommensurate):
		return "conversion"
	case errors.Is(err, bristol671.ErrUnrecognizedCode):
		return "unrecognized_code"
	case errors.Is(err, bristol671.ErrParse):
		return "parse"
	case errors.Is(err, bristol671.ErrQueueNotTerminated):
		return "queue_not_terminated"
	case errors.Is(err, bristol671.ErrActiveErrors):
		return "active_errors"
	}
	return "transport"
}
