// Command atconsole runs the bridge against in-memory ports so the whole
// stack can be driven from a terminal: typed commands go in through the
// virtual CDC side exactly as a USB host would send them, and both the far
// UART end and the CDC return path are printed as they produce bytes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/shlex"

	"cdcbridge-go/bus"
	"cdcbridge-go/hal"
	"cdcbridge-go/internal/platform"
	"cdcbridge-go/services/bridge"
	"cdcbridge-go/services/command"
	"cdcbridge-go/services/config"
	"cdcbridge-go/services/stats"
	"cdcbridge-go/types"
)

// consolePin is a GPIOPin that reports output changes on the terminal.
// Inputs model the active-low buttons: level true means released.
type consolePin struct {
	mu    sync.Mutex
	name  string
	level bool
	out   bool
}

func (p *consolePin) ConfigureInput(hal.Pull) error { return nil }

func (p *consolePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.out = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *consolePin) Set(level bool) {
	p.mu.Lock()
	changed := p.level != level
	p.level = level
	p.mu.Unlock()
	if changed {
		state := "off"
		if level {
			state = "on"
		}
		fmt.Printf("[%s] %s\n", p.name, state)
	}
}

func (p *consolePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

type consoleADC struct {
	mu sync.Mutex
	v  uint16
}

func (a *consoleADC) ReadRaw() (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.v, nil
}

func (a *consoleADC) set(v uint16) {
	a.mu.Lock()
	a.v = v
	a.mu.Unlock()
}

type consolePanel struct{}

func (consolePanel) ClearDisplay() error { return nil }
func (consolePanel) Print(d []byte) error {
	fmt.Printf("[lcd] %s\n", d)
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	devUART, hostUART := platform.NewMemUARTPair()
	cdc := &platform.MemCDC{}

	leds := make([]*consolePin, 8)
	buttons := make([]*consolePin, 4)
	var ledPins, buttonPins []hal.GPIOPin
	for i := range leds {
		leds[i] = &consolePin{name: fmt.Sprintf("led%d", i+1)}
		ledPins = append(ledPins, leds[i])
	}
	for i := range buttons {
		buttons[i] = &consolePin{name: fmt.Sprintf("btn%d", i+1), level: true}
		buttonPins = append(buttonPins, buttons[i])
	}
	adc := &consoleADC{}

	interp := command.New(command.Config{
		LEDs:    ledPins,
		Buttons: buttonPins,
		ADC:     adc,
		Panel:   consolePanel{},
		Reply:   func(p []byte) { _, _ = devUART.Write(p) },
	})

	b := bus.NewBus(16)

	ctxCfg := context.WithValue(ctx, config.CtxDeviceKey, "host")
	config.NewConfigService().Start(ctxCfg, b.NewConnection("config"))

	ready := make(chan *bridge.Bridge, 1)
	go func() {
		_ = bridge.Run(ctx, b.NewConnection("bridge"), bridge.Deps{
			UART:      devUART,
			Formatter: &platform.NopFormatter{},
			CDC:       cdc,
			USBSink:   interp.Feed,
		}, ready)
	}()

	var br *bridge.Bridge
	select {
	case br = <-ready:
	case <-time.After(2 * time.Second):
		fmt.Fprintln(os.Stderr, "bridge did not start")
		os.Exit(1)
	}
	cdc.OnData = br.DataReceived

	statsSvc := stats.New(br.Stats)
	_ = statsSvc.Start(ctx, b.NewConnection("stats"))

	// The host "opens the port": negotiate 115200 8N1 up front.
	_ = br.SetLineCoding(types.LineCoding{BaudRate: 115200, DataBits: 8})

	// Print whatever shows up on the far UART end (interpreter replies and
	// relayed host bytes) and on the CDC return path.
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := hostUART.ReadBlocking(ctx, buf)
			if err != nil {
				return
			}
			fmt.Printf("uart> %q\n", buf[:n])
		}
	}()
	go func() {
		for ctx.Err() == nil {
			if out := cdc.HostRead(); len(out) > 0 {
				fmt.Printf("cdc> %q\n", out)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	fmt.Println("commands: send <line> | uart <text> | press <n> | release <n> | pot <raw> | stats | quit")
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		args, err := shlex.Split(sc.Text())
		if err != nil {
			fmt.Fprintln(os.Stderr, "parse:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "send":
			// Sent as the USB host would: payload plus CR terminator.
			for _, a := range args[1:] {
				cdc.HostWrite([]byte(a + "\r"))
			}
		case "uart":
			// Inject bytes on the far UART end (flows UART -> CDC).
			for _, a := range args[1:] {
				_, _ = hostUART.Write([]byte(a))
			}
		case "press", "release":
			if len(args) < 2 {
				continue
			}
			n, _ := strconv.Atoi(args[1])
			if n >= 1 && n <= len(buttons) {
				buttons[n-1].Set(args[0] == "release") // active low
			}
		case "pot":
			if len(args) < 2 {
				continue
			}
			v, _ := strconv.Atoi(args[1])
			adc.set(uint16(v))
		case "stats":
			s := br.Stats()
			fmt.Printf("received=%d forwarded=%d dropped=%d\n",
				s.ReceivedTotal, s.ForwardedTotal, s.Dropped)
		case "quit":
			return
		default:
			fmt.Println("unknown command:", args[0])
		}
	}
}
