package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the Bristol 671 factory serial setting.
const DefaultBaudRate = 115200

// port adapts a serial.Port so that a read timeout surfaces as ErrTimeout
// instead of an empty read, which bufio would otherwise retry.
type port struct {
	serial.Port
}

func (p port) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}

// OpenSerial opens the named serial port at 8N1 and wraps it in a Conn.
// timeout bounds every read; zero blocks forever.
func OpenSerial(name string, baud int, timeout time.Duration, opts ...ConnOption) (*Conn, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	if timeout > 0 {
		if err := p.SetReadTimeout(timeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("setting read timeout on %s: %w", name, err)
		}
	}
	return NewConn(port{p}, opts...), nil
}
