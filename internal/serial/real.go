package serial

import (
	"bytes"
	"fmt"
	"log"
	"time"

	bugst "go.bug.st/serial"
)

// maxLine bounds the receive buffer. A longer line is dropped whole.
const maxLine = 4096

// link is the subset of bugst.Port the transport uses.
type link interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Close() error
}

// RealPort reads lines from an actual UART.
type RealPort struct {
	device string
	mode   *bugst.Mode
	settle time.Duration

	open  func(device string, mode *bugst.Mode) (link, error)
	sleep func(time.Duration)
	now   func() time.Time

	link    link
	pending []byte
	buf     []byte
	// overflow is set while the rest of a dropped line is still arriving.
	overflow bool
}

// NewRealPort opens device at the given baud rate with 8N1 framing.
// settle is how long Reset waits between close and reopen.
func NewRealPort(device string, baud int, settle time.Duration) (*RealPort, error) {
	p := newPort(device, baud, settle, func(device string, mode *bugst.Mode) (link, error) {
		return bugst.Open(device, mode)
	})
	if err := p.openLink(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPort(device string, baud int, settle time.Duration, open func(string, *bugst.Mode) (link, error)) *RealPort {
	return &RealPort{
		device: device,
		mode: &bugst.Mode{
			BaudRate: baud,
			DataBits: DataBits,
			Parity:   bugst.NoParity,
			StopBits: bugst.OneStopBit,
		},
		settle: settle,
		open:   open,
		sleep:  time.Sleep,
		now:    time.Now,
		buf:    make([]byte, 256),
	}
}

func (p *RealPort) openLink() error {
	l, err := p.open(p.device, p.mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.device, err)
	}
	p.link = l
	return nil
}

// ReadLine returns the next newline-terminated line. Partial data received
// before the timeout is kept for the next call. Blank lines are skipped.
func (p *RealPort) ReadLine(timeout time.Duration) ([]byte, error) {
	if p.link == nil {
		return nil, ErrClosed
	}

	deadline := p.now().Add(timeout)
	for {
		if line, ok := p.takeLine(); ok {
			return line, nil
		}

		remaining := deadline.Sub(p.now())
		if remaining <= 0 {
			return nil, ErrTimeout
		}
		if err := p.link.SetReadTimeout(remaining); err != nil {
			return nil, fmt.Errorf("set read timeout on %s: %w", p.device, err)
		}

		n, err := p.link.Read(p.buf)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p.device, err)
		}
		if n == 0 {
			return nil, ErrTimeout
		}
		p.pending = append(p.pending, p.buf[:n]...)
	}
}

// takeLine pops the first complete non-blank line from the pending buffer.
func (p *RealPort) takeLine() ([]byte, bool) {
	for {
		i := bytes.IndexByte(p.pending, '\n')
		if i < 0 {
			if len(p.pending) >= maxLine {
				log.Printf("serial: dropping %d bytes without newline", len(p.pending))
				p.pending = p.pending[:0]
				p.overflow = true
			}
			return nil, false
		}
		if p.overflow {
			p.pending = append(p.pending[:0], p.pending[i+1:]...)
			p.overflow = false
			continue
		}

		line := bytes.TrimRight(p.pending[:i], "\r")
		rest := p.pending[i+1:]
		if len(bytes.TrimSpace(line)) == 0 {
			p.pending = rest
			continue
		}

		out := make([]byte, len(line))
		copy(out, line)
		p.pending = append(p.pending[:0], rest...)
		return out, true
	}
}

// Write sends b to the coordinator.
func (p *RealPort) Write(b []byte) error {
	if p.link == nil {
		return ErrClosed
	}
	if _, err := p.link.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", p.device, err)
	}
	return nil
}

// Reset closes the port, waits for the link to settle, reopens it and
// flushes the OS receive buffer. On failure the port stays closed and the
// next Reset tries again.
func (p *RealPort) Reset() error {
	if p.link != nil {
		if err := p.link.Close(); err != nil {
			log.Printf("serial: close %s during reset: %v", p.device, err)
		}
		p.link = nil
	}
	p.pending = nil
	p.overflow = false

	p.sleep(p.settle)

	if err := p.openLink(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := p.link.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset: flush %s: %w", p.device, err)
	}
	return nil
}

// Close releases the port.
func (p *RealPort) Close() error {
	if p.link == nil {
		return nil
	}
	err := p.link.Close()
	p.link = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", p.device, err)
	}
	return nil
}
