//go:build rp2040

// Command bridge-fw is the Pico firmware: USB CDC on one side, UART0 on
// the other, with the AT command interpreter listening on the USB stream.
package main

import (
	"context"
	"time"

	"cdcbridge-go/bus"
	"cdcbridge-go/internal/platform"
	"cdcbridge-go/services/bridge"
	"cdcbridge-go/services/command"
	"cdcbridge-go/services/config"
	"cdcbridge-go/services/stats"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	board, err := platform.NewBoard()
	if err != nil {
		println("board init failed:", err.Error())
		return
	}

	ctx := context.Background()
	b := bus.NewBus(8)

	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, "pico")
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))

	interp := command.New(command.Config{
		LEDs:    board.LEDs,
		Buttons: board.Buttons,
		ADC:     board.ADC,
		Panel:   board.Panel,
		Reply:   func(p []byte) { _, _ = board.UART.Write(p) },
	})

	ready := make(chan *bridge.Bridge, 1)
	go func() {
		err := bridge.Run(ctx, b.NewConnection("bridge"), bridge.Deps{
			UART:      board.UART,
			Formatter: board.Formatter,
			CDC:       board.CDC,
			USBSink:   interp.Feed,
		}, ready)
		if err != nil {
			println("bridge stopped:", err.Error())
		}
	}()

	br := <-ready

	_ = stats.New(br.Stats).Start(ctx, b.NewConnection("stats"))

	// machine.Serial has no data callback; poll and forward.
	board.PollCDC(ctx, br.DataReceived)
}
