// Package cmdlog wraps an instrument transport and logs every command and
// reply in color, for interactive sessions with the wavelength meter.
package cmdlog

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

func isASCII(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

var (
	CmdStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	R1Style  = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	R2Style  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Transport matches bristol671.Transport.
type Transport interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
}

// Logger is a Transport that logs traffic to an underlying Transport.
type Logger struct {
	t   Transport
	log logrus.FieldLogger
}

// New wraps t. If log is nil the logrus standard logger is used.
func New(t Transport, log logrus.FieldLogger) *Logger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logger{t: t, log: log}
}

func (l *Logger) Command(format string, a ...any) error {
	c := format
	if a != nil {
		c = fmt.Sprintf(format, a...)
	}
	if err := l.t.Command(c); err != nil {
		l.log.Errorf("cmd %s: error %s", CmdStyle.Render(c), ErrStyle.Render(err.Error()))
		return err
	}
	l.log.Infof("%s()", CmdStyle.Render(c))
	return nil
}

func (l *Logger) Query(q string) (string, error) {
	a, err := l.t.Query(q)
	if err != nil {
		l.log.Errorf("query %s: error %s", CmdStyle.Render(q), ErrStyle.Render(err.Error()))
		return a, err
	}
	l.log.Infof("%s: %s", CmdStyle.Render(q), Describe(a))
	return a, nil
}

// Close closes the wrapped transport if it is an io.Closer.
func (l *Logger) Close() error {
	if c, ok := l.t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Describe renders a reply for the log: quoted when printable, with a hex
// dump when it carries control or non-ASCII bytes.
func Describe(a string) string {
	a = strings.TrimRight(a, "\r\n")
	switch {
	case len(a) == 0:
		return R1Style.Render("<no response>")
	case isASCII(a):
		return fmt.Sprintf("[%d] %s", len(a), R2Style.Render(fmt.Sprintf("%q", a)))
	case len(a) < 32:
		return fmt.Sprintf("[%d] %q (% 2x)", len(a), a, []byte(a))
	default:
		return fmt.Sprintf("[%d] % 2x", len(a), []byte(a))
	}
}
