// Package hal declares the collaborator contracts the bridge and the command
// interpreter consume. Implementations live in internal/platform (hardware
// and host loopback) and in package tests (fakes).
package hal

import (
	"context"

	"cdcbridge-go/types"
)

// ---------------- UART ----------------

// UARTPort is the duplex byte transport on the hardware-serial side.
// Read drains the driver's RX buffer without blocking; ReadBlocking waits
// for at least one byte or ctx expiry; Write blocks until the data has been
// handed to the wire.
type UARTPort interface {
	Read(p []byte) (int, error)
	ReadBlocking(ctx context.Context, p []byte) (int, error)
	Buffered() int
	Write(p []byte) (int, error)
}

// UARTFormatter applies negotiated framing where the platform supports it
// (no-op on host).
type UARTFormatter interface {
	SetBaudRate(br uint32)
	SetFormat(databits uint8, stop types.StopBits, parity types.Parity) error
}

// UARTAborter cancels in-flight transfers. Optional: the bridge type-asserts
// for it at reset and teardown boundaries.
type UARTAborter interface {
	AbortSend()
	AbortReceive()
}

// ---------------- USB CDC ----------------

// CDCChannel is the packetized virtual-serial transport on the USB side.
// Both calls are non-blocking: ReadData returns the bytes currently
// available, WriteData returns how many bytes the endpoint accepted.
type CDCChannel interface {
	ReadData(p []byte) int
	WriteData(p []byte) int
}

// ---------------- GPIO ----------------

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
}

// ---------------- ADC ----------------

// ADC performs a one-shot conversion with a bounded internal wait.
type ADC interface {
	ReadRaw() (uint16, error)
}

// ---------------- Display ----------------

// DisplayPanel mirrors the stored display string to a physical panel.
type DisplayPanel interface {
	ClearDisplay() error
	Print(data []byte) error
}
