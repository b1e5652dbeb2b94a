package transport

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

// DefaultTelnetPort is the port the Bristol 671 serves SCPI on.
const DefaultTelnetPort = "23"

// DialTCP connects to the instrument's SCPI telnet server. Connection attempts
// are retried with exponential backoff for up to three seconds, except when
// the instrument actively refuses the connection. If addr has no port,
// DefaultTelnetPort is used. timeout bounds each attempt and each query.
func DialTCP(addr string, timeout time.Duration, opts ...ConnOption) (*Conn, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, DefaultTelnetPort)
	}
	var (
		conn    net.Conn
		refused error
	)
	op := func() error {
		c, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "refused") {
				refused = err
				return nil
			}
			return err
		}
		conn = c
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if refused != nil {
		return nil, refused
	}
	if err != nil {
		return nil, fmt.Errorf("connection timeout to %s: %w", addr, err)
	}
	if timeout > 0 {
		opts = append([]ConnOption{WithTimeout(timeout)}, opts...)
	}
	return NewConn(conn, opts...), nil
}
