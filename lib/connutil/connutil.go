// Package connutil sets up a connection to a Bristol 671 from a YAML config
// file and command line flags, for use by the example programs.
package connutil

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/sirupsen/logrus"
	yml "gopkg.in/yaml.v2"

	"github.com/gotmc/bristol671"
	"github.com/gotmc/bristol671/lib/cmdlog"
	"github.com/gotmc/bristol671/lib/find"
	"github.com/gotmc/bristol671/lib/transport"
)

// ConfigFileName is the config file read when no other is named.
const ConfigFileName = "bristol671.yml"

// Transport kinds.
const (
	Serial = "serial"
	TCP    = "tcp"
)

// Config describes how to reach the instrument.
type Config struct {
	// Transport is "serial" or "tcp".
	Transport string `koanf:"transport" yaml:"transport"`

	// Port is the serial device. Empty means search sysfs for a Bristol
	// USB tty.
	Port string `koanf:"port" yaml:"port"`
	Baud int    `koanf:"baud" yaml:"baud"`

	// Addr is the host[:port] of the instrument's telnet server.
	Addr string `koanf:"addr" yaml:"addr"`

	Timeout       time.Duration `koanf:"timeout" yaml:"timeout"`
	Delay         time.Duration `koanf:"delay" yaml:"delay"`
	Debug         bool          `koanf:"debug" yaml:"debug"`
	MaxErrorReads int           `koanf:"maxerrorreads" yaml:"maxerrorreads"`

	// HTTPAddr is the listen address of wmserver.
	HTTPAddr string `koanf:"httpaddr" yaml:"httpaddr"`
}

// DefaultConfig returns the settings used when neither file nor flags say
// otherwise.
func DefaultConfig() Config {
	return Config{
		Transport:     Serial,
		Baud:          transport.DefaultBaudRate,
		Timeout:       2 * time.Second,
		MaxErrorReads: bristol671.DefaultMaxErrorReads,
		HTTPAddr:      ":8000",
	}
}

// ConfigPath returns the value of a -config flag in args, accepting the
// "-config path" and "-config=path" forms with one or two dashes. It is
// meant to run before flag parsing, since the config file supplies the flag
// defaults. def is returned when no -config is given.
func ConfigPath(args []string, def string) string {
	path := def
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name := strings.TrimPrefix(strings.TrimPrefix(a, "-"), "-")
		if name == a {
			continue
		}
		if name == "config" && i+1 < len(args) {
			i++
			path = args[i]
		} else if v, ok := strings.CutPrefix(name, "config="); ok {
			path = v
		}
	}
	return path
}

// LoadConfig layers the YAML file at path over DefaultConfig. A missing file
// is not an error.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) { // file missing, who cares
				return Config{}, fmt.Errorf("error loading config %s: %w", path, err)
			}
		}
	}
	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// WriteConfig writes c as YAML, in the form LoadConfig reads.
func WriteConfig(w io.Writer, c Config) error {
	return yml.NewEncoder(w).Encode(c)
}

// Validate checks the settings that Setup cannot recover from.
func (c Config) Validate() error {
	switch c.Transport {
	case Serial:
	case TCP:
		if c.Addr == "" {
			return fmt.Errorf("%w: tcp transport needs an address", bristol671.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: transport %q must be %s or %s", bristol671.ErrInvalidArgument, c.Transport, Serial, TCP)
	}
	if c.MaxErrorReads <= 0 {
		return fmt.Errorf("%w: maxerrorreads must be > 0, got %d", bristol671.ErrInvalidArgument, c.MaxErrorReads)
	}
	return nil
}

// AddFlags is to be called before [flag.FlagSet.Parse]. Flag defaults are the
// current values of c, so load the config file first.
func (c *Config) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Transport, "transport", c.Transport, "instrument link, serial or tcp")
	fs.StringVar(&c.Port, "port", c.Port, "serial port of the wavelength meter (default: search usb ttys)")
	fs.IntVar(&c.Baud, "baud", c.Baud, "serial baud rate")
	fs.StringVar(&c.Addr, "addr", c.Addr, "host[:port] of the wavelength meter telnet server")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "reply timeout")
	fs.DurationVar(&c.Delay, "delay", c.Delay, "delay between writes")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "log every command and reply")
	fs.IntVar(&c.MaxErrorReads, "maxerr", c.MaxErrorReads, "maximum SYSTEM:ERROR? reads per drain")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP listen address")
}

// Dial opens the link named by c.
func (c Config) Dial(log logrus.FieldLogger) (*transport.Conn, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := []transport.ConnOption{transport.WithLogger(log)}
	if c.Delay > 0 {
		opts = append(opts, transport.WithWriteDelay(c.Delay))
	}
	if c.Debug {
		opts = append(opts, transport.WithDebug())
	}
	if c.Transport == TCP {
		log.WithField("addr", c.Addr).Info("dialing wavelength meter")
		return transport.DialTCP(c.Addr, c.Timeout, opts...)
	}
	port := c.Port
	if port == "" {
		tty, err := (&find.Finder{Log: log}).Find(find.AnyFilter(find.BristolFilter, find.FTDIFilter))
		if err != nil {
			return nil, fmt.Errorf("locating serial port failed, use -port: %w", err)
		}
		port = "/dev/" + tty
	}
	log.WithField("port", port).Info("opening wavelength meter")
	return transport.OpenSerial(port, c.Baud, c.Timeout, opts...)
}

// Setup is to be called after the flags are parsed. cleanup closes the
// connection.
func (c Config) Setup(log logrus.FieldLogger) (wm *bristol671.Wavemeter, cleanup func(), err error) {
	nocleanup := func() {}
	conn, err := c.Dial(log)
	if err != nil {
		return nil, nocleanup, err
	}
	var t bristol671.Transport = conn
	if c.Debug {
		t = cmdlog.New(conn, log)
	}
	wm, err = bristol671.New(t,
		bristol671.WithLogger(log),
		bristol671.WithMaxErrorReads(c.MaxErrorReads))
	if err != nil {
		conn.Close()
		return nil, nocleanup, err
	}
	cleanup = func() {
		if err := wm.Close(); err != nil {
			log.WithError(err).Error("closing wavelength meter")
		}
	}
	return wm, cleanup, nil
}
