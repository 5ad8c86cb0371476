package serialio

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Port is the line-oriented serial transport the channel runs on.
type Port interface {
	// ReadLine returns the next complete line, trimmed of whitespace.
	// ok is false when no complete line arrived within the poll window;
	// a non-nil error means the link is broken.
	ReadLine() (line string, ok bool, err error)
	WriteLine(line string) error
	Close() error
}

// OpenFunc opens a Port on the given address at the given speed.
type OpenFunc func(address string, baudRate int) (Port, error)

// readTimeout bounds a single blocking read so the reader loop can check
// its stop flag; it is deliberately shorter than the channel poll interval.
const readTimeout = 50 * time.Millisecond

// Open opens a physical serial port.  Production OpenFunc.
func Open(address string, baudRate int) (Port, error) {
	p, err := serial.Open(address, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", address, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &serialPort{port: p}, nil
}

type serialPort struct {
	port    serial.Port
	pending []byte
	scratch [256]byte
}

func (p *serialPort) ReadLine() (string, bool, error) {
	for {
		if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(p.pending[:i]))
			p.pending = p.pending[i+1:]
			return line, true, nil
		}

		n, err := p.port.Read(p.scratch[:])
		if err != nil {
			return "", false, fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			// Read timeout: nothing more available right now.
			return "", false, nil
		}
		p.pending = append(p.pending, p.scratch[:n]...)
	}
}

func (p *serialPort) WriteLine(line string) error {
	if _, err := p.port.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (p *serialPort) Close() error {
	return p.port.Close()
}
