// Package platform provides the concrete port implementations behind the
// hal contracts: in-memory endpoints for host builds and tests, and the
// RP2040 board wiring under its build tag.
package platform

import (
	"context"
	"sync"

	"cdcbridge-go/hal"
	"cdcbridge-go/types"
)

// MemUART is one end of an in-memory serial cable: bytes written on one
// end appear on the peer's receive side. Implements hal.UARTPort and
// hal.UARTAborter.
type MemUART struct {
	peer *MemUART

	mu     sync.Mutex
	rx     []byte
	notify chan struct{}
}

// NewMemUARTPair returns the two ends of a connected cable.
func NewMemUARTPair() (*MemUART, *MemUART) {
	a := &MemUART{notify: make(chan struct{}, 1)}
	b := &MemUART{notify: make(chan struct{}, 1)}
	a.peer, b.peer = b, a
	return a, b
}

func (u *MemUART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	return n, nil
}

func (u *MemUART) ReadBlocking(ctx context.Context, p []byte) (int, error) {
	for {
		if n, _ := u.Read(p); n > 0 {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-u.notify:
		}
	}
}

func (u *MemUART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rx)
}

func (u *MemUART) Write(p []byte) (int, error) {
	u.peer.receive(p)
	return len(p), nil
}

func (u *MemUART) receive(p []byte) {
	u.mu.Lock()
	u.rx = append(u.rx, p...)
	u.mu.Unlock()
	select {
	case u.notify <- struct{}{}:
	default:
	}
}

// Abort hooks are no-ops: nothing is ever in flight on a memory cable.
func (u *MemUART) AbortSend()    {}
func (u *MemUART) AbortReceive() {}

// NopFormatter satisfies hal.UARTFormatter on platforms with no real
// framing. It remembers what was asked for.
type NopFormatter struct {
	mu   sync.Mutex
	baud uint32
	last types.LineCoding
}

func (f *NopFormatter) SetBaudRate(br uint32) {
	f.mu.Lock()
	f.baud = br
	f.last.BaudRate = br
	f.mu.Unlock()
}

func (f *NopFormatter) SetFormat(databits uint8, stop types.StopBits, parity types.Parity) error {
	f.mu.Lock()
	f.last.DataBits = databits
	f.last.StopBits = stop
	f.last.Parity = parity
	f.mu.Unlock()
	return nil
}

// Last returns the most recently applied coding.
func (f *NopFormatter) Last() types.LineCoding {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// MemCDC is an in-memory CDC endpoint. The device side uses the
// hal.CDCChannel methods; the host side uses HostWrite/HostRead. OnData,
// when set, fires after each HostWrite so callers can forward the
// data-received notification.
type MemCDC struct {
	mu       sync.Mutex
	fromHost []byte
	toHost   []byte

	OnData func()
}

var _ hal.CDCChannel = (*MemCDC)(nil)

func (c *MemCDC) ReadData(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := copy(p, c.fromHost)
	c.fromHost = c.fromHost[n:]
	return n
}

func (c *MemCDC) WriteData(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toHost = append(c.toHost, p...)
	return len(p)
}

// HostWrite queues bytes for the device side and fires OnData.
func (c *MemCDC) HostWrite(p []byte) {
	c.mu.Lock()
	c.fromHost = append(c.fromHost, p...)
	cb := c.OnData
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// HostRead takes everything the device has written so far.
func (c *MemCDC) HostRead() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.toHost
	c.toHost = nil
	return out
}
