// Package find locates the USB virtual COM port of a wavelength meter by
// walking sysfs.
package find

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Find when no tty matches.
var ErrNotFound = errors.New("no matching ttys found")

type FilterFn func(*Usbtty) bool

// BristolFilter matches ttys whose USB manufacturer or product string names
// Bristol Instruments.
func BristolFilter(ut *Usbtty) bool {
	return strings.Contains(strings.ToLower(ut.Mfg), "bristol") ||
		strings.Contains(strings.ToLower(ut.Prod), "bristol")
}

// FTDIFilter matches FTDI USB serial bridges, which some 671 revisions
// enumerate as.
func FTDIFilter(ut *Usbtty) bool {
	return ut.IDv == "0403"
}

func SerialFilter(s string) FilterFn {
	return func(ut *Usbtty) bool { return ut.Serial == s }
}

// AnyFilter matches a tty accepted by any of filters.
func AnyFilter(filters ...FilterFn) FilterFn {
	return func(ut *Usbtty) bool {
		for _, f := range filters {
			if f(ut) {
				return true
			}
		}
		return false
	}
}

// Finder searches a sysfs tree for usb serial devices.
type Finder struct {
	// Root is the sysfs mount point, normally "/sys".
	Root string
	Log  logrus.FieldLogger
}

// Find searches /sys for a usb serial device. See (*Finder).Find.
func Find(filter FilterFn) (string, error) {
	return (&Finder{}).Find(filter)
}

// Find searches for a usb serial device. If filter is not nil,
// it is used to narrow choices down. The first device for which
// it returns true (if any) is chosen.
func (f *Finder) Find(filter FilterFn) (string, error) {
	ttys, err := f.AllUsbTtys()
	if err != nil {
		return "", err
	}
	if filter != nil {
		var match Usbttys
		for i := range ttys {
			if filter(&ttys[i]) {
				match = Usbttys{ttys[i]}
				break
			}
		}
		ttys = match
	}

	if len(ttys) == 0 {
		return "", ErrNotFound
	}
	if len(ttys) == 1 {
		return ttys[0].Dev, nil
	}
	return "", fmt.Errorf("multiple ttys:\n%s", ttys)
}

type Usbtty struct {
	Dev, Path string
	IDp, IDv  string
	Mfg, Prod string
	Serial    string
}

func (u Usbtty) String() string {
	return fmt.Sprintf("dev %s path %s pid/vid %s/%s mfg/prod %s/%s serial %s", u.Dev, u.Path, u.IDp, u.IDv, u.Mfg, u.Prod, u.Serial)
}

type Usbttys []Usbtty

func (uts Usbttys) String() string {
	s := make([]string, 0, len(uts))
	for _, ut := range uts {
		s = append(s, ut.String())
	}
	return strings.Join(s, "\n")
}

func (f *Finder) root() string {
	if f.Root == "" {
		return "/sys"
	}
	return f.Root
}

func (f *Finder) log() logrus.FieldLogger {
	if f.Log == nil {
		return logrus.StandardLogger()
	}
	return f.Log
}

// AllUsbTtys finds ttys on usb devices in /sys.
func AllUsbTtys() (Usbttys, error) {
	return (&Finder{}).AllUsbTtys()
}

// AllUsbTtys finds ttys on usb devices, by looking at
// <root>/class/tty and the device directories its links point to.
func (f *Finder) AllUsbTtys() (Usbttys, error) {
	var devs Usbttys
	sct := filepath.Join(f.root(), "class", "tty")
	entries, err := os.ReadDir(sct)
	if err != nil {
		return nil, err
	}
	log := f.log()
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		// we have a symlink like
		// /sys/class/tty/ttyACM0 ->
		// /sys/devices/pci0000:00/0000:00:01.3/0000:02:00.0/usb1/1-10/1-10:1.0/tty/ttyACM0
		path := filepath.Join(sct, e.Name())
		abs, err := filepath.EvalSymlinks(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Warn("skipping unresolvable tty link")
			continue
		}
		if !strings.Contains(abs, "usb") {
			continue
		}
		dev, err := filepath.EvalSymlinks(filepath.Join(abs, "device"))
		if err != nil {
			log.WithError(err).WithField("path", abs).Warn("usb tty lacking device subdir")
		}
		// device points at the interface, e.g. .../usb1/1-10/1-10:1.0;
		// the usb device attributes live one level up.
		info, err := readUsbInfo(filepath.Dir(dev))
		if err != nil {
			log.WithError(err).WithField("path", abs).Warn("reading usb attributes")
		}
		info.Dev = e.Name()
		info.Path = abs
		devs = append(devs, info)
	}
	return devs, nil
}

// readUsbInfo reads product and vendor ids, and mfg/product/serial strings.
//
// It returns the last error encountered, ignoring os.ErrNotExist. Errors do
// not prevent reading additional files or returning data collected.
func readUsbInfo(dev string) (ut Usbtty, err error) {
	read := func(name string) string {
		b, rerr := os.ReadFile(filepath.Join(dev, name))
		if rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = rerr
		}
		return strings.TrimSpace(string(b))
	}
	ut.IDp = read("idProduct")
	ut.IDv = read("idVendor")
	ut.Mfg = read("manufacturer")
	ut.Prod = read("product")
	ut.Serial = read("serial")
	return ut, err
}
