//go:build rp2040

package platform

import (
	"context"
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/hd44780i2c"

	"cdcbridge-go/hal"
	"cdcbridge-go/types"
)

// Board pin assignment (Pico GP numbering).
const (
	uartTXPin = machine.GP0
	uartRXPin = machine.GP1

	ledBasePin    = 2  // GP2..GP9: eight indicator outputs
	buttonBasePin = 10 // GP10..GP13: four inputs, active low

	potPin = machine.GP26 // ADC0

	lcdAddr = 0x27
)

// Board bundles the wired peripherals handed to the bridge and the command
// interpreter.
type Board struct {
	UART      hal.UARTPort
	Formatter hal.UARTFormatter
	CDC       hal.CDCChannel
	LEDs      []hal.GPIOPin
	Buttons   []hal.GPIOPin
	ADC       hal.ADC
	Panel     hal.DisplayPanel
}

// NewBoard configures the Pico peripherals. The LCD is optional hardware;
// a probe failure leaves Panel nil and everything else keeps working.
func NewBoard() (*Board, error) {
	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{BaudRate: 115200, TX: uartTXPin, RX: uartRXPin}); err != nil {
		return nil, err
	}

	b := &Board{
		UART:      u,
		Formatter: uartFormatter{u},
		CDC:       usbSerial{},
	}

	for i := 0; i < 8; i++ {
		pin := &rp2Pin{p: machine.Pin(ledBasePin + i)}
		if err := pin.ConfigureOutput(false); err != nil {
			return nil, err
		}
		b.LEDs = append(b.LEDs, pin)
	}
	for i := 0; i < 4; i++ {
		pin := &rp2Pin{p: machine.Pin(buttonBasePin + i)}
		if err := pin.ConfigureInput(hal.PullUp); err != nil {
			return nil, err
		}
		b.Buttons = append(b.Buttons, pin)
	}

	machine.InitADC()
	adc := machine.ADC{Pin: potPin}
	adc.Configure(machine.ADCConfig{})
	b.ADC = rp2ADC{adc}

	i2c := machine.I2C0
	err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	if err == nil {
		lcd := hd44780i2c.New(i2c, lcdAddr)
		if cfgErr := lcd.Configure(hd44780i2c.Config{Width: 16, Height: 2}); cfgErr == nil {
			b.Panel = &lcd
		}
	}

	return b, nil
}

// PollCDC forwards the USB stack's data-available condition as a
// notification. machine.Serial has no callback hook, so this polls.
func (b *Board) PollCDC(ctx context.Context, notify func()) {
	for ctx.Err() == nil {
		if machine.Serial.Buffered() > 0 {
			notify()
		}
		time.Sleep(time.Millisecond)
	}
}

// ---- UART framing ----

type uartFormatter struct{ u *uartx.UART }

func (f uartFormatter) SetBaudRate(br uint32) { f.u.SetBaudRate(br) }

func (f uartFormatter) SetFormat(databits uint8, stop types.StopBits, parity types.Parity) error {
	var p uartx.UARTParity
	switch parity {
	case types.ParityOdd:
		p = uartx.ParityOdd
	case types.ParityEven:
		p = uartx.ParityEven
	default:
		p = uartx.ParityNone
	}
	// PL011 has no 1.5-stop mode; 1.5 rounds up to 2.
	stopbits := uint8(1)
	if stop != types.StopBits1 {
		stopbits = 2
	}
	return f.u.SetFormat(databits, stopbits, p)
}

// ---- USB CDC ----

// usbSerial adapts machine.Serial (the USB CDC device) to hal.CDCChannel.
type usbSerial struct{}

func (usbSerial) ReadData(p []byte) int {
	n := machine.Serial.Buffered()
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			return i
		}
		p[i] = b
	}
	return n
}

func (usbSerial) WriteData(p []byte) int {
	n, _ := machine.Serial.Write(p)
	return n
}

// ---- GPIO ----

type rp2Pin struct{ p machine.Pin }

func (r *rp2Pin) ConfigureInput(pull hal.Pull) error {
	var mode machine.PinMode
	switch pull {
	case hal.PullUp:
		mode = machine.PinInputPullup
	case hal.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }

// ---- ADC ----

type rp2ADC struct{ adc machine.ADC }

func (a rp2ADC) ReadRaw() (uint16, error) { return a.adc.Get(), nil }
