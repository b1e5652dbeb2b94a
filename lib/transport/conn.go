// Package transport provides line-oriented SCPI connections to a Bristol 671
// wavelength meter over its USB/RS-232 serial port or its Ethernet (telnet)
// port.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// ErrTimeout is returned when the instrument does not answer a query in time.
var ErrTimeout = errors.New("timeout waiting for instrument reply")

// deadliner is implemented by net.Conn.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// Conn sends newline terminated SCPI commands over an io.ReadWriter and reads
// newline terminated replies. A Conn is safe for concurrent use; each Query
// holds the connection for its full round trip.
type Conn struct {
	mu        sync.Mutex
	rw        io.ReadWriter
	r         *bufio.Reader
	writeTerm byte
	readTerm  byte
	timeout   time.Duration
	delay     time.Duration
	lastWrite time.Time
	debug     bool
	log       logrus.FieldLogger
}

// ConnOption applies an option to the connection.
type ConnOption func(*Conn)

// WithDebug causes commands and replies to be logged.
func WithDebug() ConnOption { return func(c *Conn) { c.debug = true } }

// WithLogger sets the logger used when debugging is on.
func WithLogger(l logrus.FieldLogger) ConnOption { return func(c *Conn) { c.log = l } }

// WithWriteDelay enforces a minimum delay between successive writes. Some
// serial adapters drop characters when commands arrive back to back.
func WithWriteDelay(d time.Duration) ConnOption { return func(c *Conn) { c.delay = d } }

// WithTimeout sets a per round trip deadline on connections that support
// deadlines, such as net.Conn.
func WithTimeout(d time.Duration) ConnOption { return func(c *Conn) { c.timeout = d } }

// WithTerminators overrides the write and read terminators, both '\n' by
// default.
func WithTerminators(write, read byte) ConnOption {
	return func(c *Conn) {
		c.writeTerm = write
		c.readTerm = read
	}
}

// NewConn wraps rw. rw is typically a serial port or a TCP connection.
func NewConn(rw io.ReadWriter, opts ...ConnOption) *Conn {
	c := Conn{
		rw:        rw,
		r:         bufio.NewReader(rw),
		writeTerm: '\n',
		readTerm:  '\n',
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Write writes raw bytes to the instrument.
func (c *Conn) Write(p []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rw.Write(p)
}

// Read reads raw bytes from the instrument, including any reply data already
// buffered by a previous Query.
func (c *Conn) Read(p []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r.Read(p)
}

// WriteString trims s and sends it followed by the write terminator.
func (c *Conn) WriteString(s string) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(s)
}

// send writes cmd plus terminator; the caller holds c.mu.
func (c *Conn) send(cmd string) (int, error) {
	if c.delay > 0 && !c.lastWrite.IsZero() {
		if wait := c.delay - time.Since(c.lastWrite); wait > 0 {
			time.Sleep(wait)
		}
	}
	if c.timeout > 0 {
		if d, ok := c.rw.(deadliner); ok {
			if err := d.SetDeadline(time.Now().Add(c.timeout)); err != nil {
				return 0, fmt.Errorf("setting deadline: %w", err)
			}
		}
	}
	line := fmt.Sprintf("%s%c", strings.TrimSpace(cmd), c.writeTerm)
	if c.debug {
		c.log.WithField("cmd", line).Debug("transport write")
	}
	n, err := io.WriteString(c.rw, line)
	c.lastWrite = time.Now()
	return n, err
}

// Command formats according to a format specifier if provided and sends a
// SCPI command to the instrument. Leading and trailing whitespace is removed
// before the write terminator is appended.
func (c *Conn) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.send(cmd)
	return err
}

// Query sends cmd and returns one reply line with its terminator (and any
// carriage return before it) removed.
func (c *Conn) Query(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.send(cmd); err != nil {
		return "", fmt.Errorf("error writing command: %w", err)
	}
	s, err := c.r.ReadString(c.readTerm)
	if c.debug {
		c.log.WithFields(logrus.Fields{"cmd": cmd, "reply": s}).Debug("transport read")
	}
	if err == io.EOF && s != "" {
		// The instrument closed the line without a terminator.
		err = nil
	}
	if err != nil {
		return "", err
	}
	s = strings.TrimSuffix(s, string(c.readTerm))
	return strings.TrimSuffix(s, "\r"), nil
}

// Close discards pending input, if the underlying port supports it, and
// closes the connection if it is an io.Closer.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if f, ok := c.rw.(interface{ ResetInputBuffer() error }); ok {
		err = multierr.Append(err, f.ResetInputBuffer())
	}
	if cl, ok := c.rw.(io.Closer); ok {
		err = multierr.Append(err, cl.Close())
	}
	return err
}
