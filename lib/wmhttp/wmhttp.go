// Package wmhttp exposes a Bristol 671 over HTTP as JSON, along with
// Prometheus metrics of its readings.
//
// Readings are served at /wavelength, /frequency, /power and /wavenumber.
// Each takes ?method=fetch|read|measure (default fetch) and an optional
// ?unit= that converts the reading, e.g. /wavelength?unit=um or
// /power?unit=dBm.
package wmhttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gotmc/bristol671"
)

// BoolT is the body of boolean getters and setters, {"bool": value}.
type BoolT struct {
	Bool bool `json:"bool"`
}

// IntT is the body of integer getters and setters, {"int": value}.
type IntT struct {
	Int int `json:"int"`
}

// Reading is the reply to a scalar measurement.
type Reading struct {
	Measurement string  `json:"measurement"`
	Method      string  `json:"method"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
}

// RegisterStatus is one register of the /status reply.
type RegisterStatus struct {
	Value uint32               `json:"value"`
	Set   []bristol671.BitName `json:"set"`
	OK    bool                 `json:"ok"`
}

// Server serves one wavemeter.
type Server struct {
	wm     *bristol671.Wavemeter
	log    logrus.FieldLogger
	reg    *prometheus.Registry
	m      *metrics
	router chi.Router
}

// Option applies an option to the server.
type Option func(*Server)

// WithLogger sets the logger for request failures.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Server) { s.log = l } }

// WithRegistry registers the metrics with reg instead of a private registry.
// /metrics serves reg.
func WithRegistry(reg *prometheus.Registry) Option { return func(s *Server) { s.reg = reg } }

// New builds the router for wm.
func New(wm *bristol671.Wavemeter, opts ...Option) *Server {
	s := &Server{wm: wm, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
	}
	s.m = newMetrics(s.reg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for route, m := range map[string]bristol671.Measurement{
		"/wavelength": bristol671.Wavelength,
		"/frequency":  bristol671.Frequency,
		"/power":      bristol671.Power,
		"/wavenumber": bristol671.Wavenumber,
	} {
		r.Get(route, s.timed(route, s.scalar(m)))
	}
	r.Get("/environment", s.timed("/environment", s.environment))
	r.Get("/all", s.timed("/all", s.all))
	r.Get("/status", s.timed("/status", s.status))
	r.Get("/errors", s.timed("/errors", s.errorQueue))
	r.Get("/average/state", s.timed("/average/state", s.getBool(wm.AverageState)))
	r.Post("/average/state", s.timed("/average/state", s.setBool(wm.SetAverageState)))
	r.Get("/average/count", s.timed("/average/count", s.getInt(wm.AverageCount)))
	r.Post("/average/count", s.timed("/average/count", s.setInt(wm.SetAverageCount)))
	r.Post("/reset", s.timed("/reset", s.reset))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) timed(route string, h http.HandlerFunc) http.HandlerFunc {
	obs := s.m.duration.WithLabelValues(route)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		obs.Observe(time.Since(start).Seconds())
	}
}

// fail counts err and reports it to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := Kind(err)
	s.m.errors.WithLabelValues(kind).Inc()
	s.log.WithError(err).WithFields(logrus.Fields{"path": r.URL.Path, "kind": kind}).Warn("request failed")
	code := http.StatusInternalServerError
	switch kind {
	case "invalid_argument", "conversion":
		code = http.StatusBadRequest
	}
	http.Error(w, err.Error(), code)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).WithField("path", r.URL.Path).Warn("encoding reply")
	}
}

func method(r *http.Request) (bristol671.Method, error) {
	m := r.URL.Query().Get("method")
	if m == "" {
		return bristol671.Fetch, nil
	}
	return bristol671.ParseMethod(m)
}

func (s *Server) scalar(m bristol671.Measurement) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meth, err := method(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		v, pu, err := s.wm.ScalarWithUnit(meth, m)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.m.observeScalar(m, v)

		reply := Reading{Measurement: m.String(), Method: meth.String(), Value: v, Unit: bristol671.NativeUnit(m)}
		if m == bristol671.Power {
			reply.Unit = pu.String()
		}
		if target := r.URL.Query().Get("unit"); target != "" {
			q, err := bristol671.ConvertMeasurement(s.wm.Units(), v, m, target, pu)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			reply.Value, reply.Unit = q.Value, q.Unit
		}
		s.respond(w, r, reply)
	}
}

func (s *Server) environment(w http.ResponseWriter, r *http.Request) {
	meth, err := method(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	env, err := s.wm.Environment(meth)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.m.observeEnvironment(env)
	s.respond(w, r, env)
}

func (s *Server) all(w http.ResponseWriter, r *http.Request) {
	meth, err := method(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.wm.All(meth)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.m.observeAll(d)
	s.respond(w, r, d)
}

// status reads every status register. Reading the event status register
// clears it on the instrument.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	reads := []struct {
		key  string
		read func() (bristol671.Register, error)
	}{
		{"event_status_enable", s.wm.EventStatusEnableRegister},
		{"event_status", s.wm.EventStatusRegister},
		{"status_byte", s.wm.StatusRegister},
		{"questionable_condition", s.wm.QuestionableConditionRegister},
		{"questionable_enable", s.wm.QuestionableEnableRegister},
	}
	reply := make(map[string]RegisterStatus, len(reads))
	for _, rd := range reads {
		reg, err := rd.read()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		set := reg.SetNames()
		if set == nil {
			set = []bristol671.BitName{}
		}
		reply[rd.key] = RegisterStatus{Value: reg.Value(), Set: set, OK: reg.IsOK()}
	}
	s.respond(w, r, reply)
}

// errorQueue drains the instrument's error queue. Active entries are part of
// a successful reply; the terminating NO_ERROR entry is included.
func (s *Server) errorQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := s.wm.DrainErrorQueue(false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, entries)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.wm.Reset(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, r, BoolT{Bool: b})
	}
}

func (s *Server) setBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b BoolT
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = fcn(b.Bool); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) getInt(fcn func() (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := fcn()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.respond(w, r, IntT{Int: i})
	}
}

func (s *Server) setInt(fcn func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var i IntT
		err := json.NewDecoder(r.Body).Decode(&i)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = fcn(i.Int); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ListenAndServe serves s on addr until the server fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.WithField("addr", addr).Info("serving wavelength meter")
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
