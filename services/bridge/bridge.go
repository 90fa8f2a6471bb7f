// Package bridge relays bytes between a hardware UART and a USB CDC ACM
// channel. The UART receive path produces into a fixed ring addressed by
// monotonic counters; a periodic drain task hands the backlog to the USB
// side and discards it wholesale when the host stops consuming. Bytes
// arriving from the USB side are relayed to the UART and fed to an optional
// sink (the command interpreter).
package bridge

import (
	"context"
	"sync"
	"time"

	"cdcbridge-go/bus"
	"cdcbridge-go/errcode"
	"cdcbridge-go/hal"
	"cdcbridge-go/types"
	"cdcbridge-go/x/mathx"
	"cdcbridge-go/x/ring"
)

const (
	defaultRingSize      = 512
	defaultDrainInterval = 10 * time.Millisecond

	// Per-read clamp for the UART receive loop.
	rxChunkSize = 64
	// CDC read scratch, sized like the endpoint's receive buffer.
	usbChunkSize = 512
)

// Options wires a Bridge to its ports. UART and CDC are required; the rest
// are optional.
type Options struct {
	UART      hal.UARTPort
	Formatter hal.UARTFormatter
	CDC       hal.CDCChannel

	// USBSink receives every chunk read from the CDC side, before it is
	// relayed to the UART. The bridge calls it from a single goroutine.
	USBSink func(p []byte)

	// RingSize is rounded up to a power of two; 0 selects the default.
	RingSize int
	// DrainInterval is the drain task period; 0 selects the default.
	DrainInterval time.Duration

	// Conn, when set, is used for retained state reporting.
	Conn *bus.Connection
}

type Bridge struct {
	uart hal.UARTPort
	fmtr hal.UARTFormatter
	cdc  hal.CDCChannel
	sink func(p []byte)

	ring       *ring.Ring
	drainEvery time.Duration
	conn       *bus.Connection

	mu         sync.Mutex
	lineCoding types.LineCoding
	running    bool
	cancel     context.CancelFunc

	armOnce sync.Once
	armed   chan struct{} // closed by the first accepted line coding
	txKick  chan struct{} // coalesced data-received notifications

	wg sync.WaitGroup
}

func New(o Options) *Bridge {
	size := o.RingSize
	if size <= 0 {
		size = defaultRingSize
	}
	size = nextPow2(mathx.Clamp(size, 64, 8192))

	every := o.DrainInterval
	if every <= 0 {
		every = defaultDrainInterval
	}

	return &Bridge{
		uart:       o.UART,
		fmtr:       o.Formatter,
		cdc:        o.CDC,
		sink:       o.USBSink,
		ring:       ring.New(size),
		drainEvery: every,
		conn:       o.Conn,
		armed:      make(chan struct{}),
		txKick:     make(chan struct{}, 1),
	}
}

func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// Start launches the receive, drain and transmit loops. UART reception
// stays parked until the host's first successful SetLineCoding.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errcode.Busy
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.running = true
	b.mu.Unlock()

	b.wg.Add(3)
	go b.rxLoop(ctx)
	go b.drainLoop(ctx)
	go b.txLoop(ctx)

	b.publishState("idle", "awaiting_line_coding", nil)
	return nil
}

// Stop cancels the loops, aborts in-flight transfers and forgets the
// negotiated line coding.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.running = false
	b.cancel = nil
	b.lineCoding = types.LineCoding{}
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.abortInFlight()
	b.wg.Wait()
	b.publishState("stopped", "uninitialized", nil)
}

// -----------------------------------------------------------------------------
// UART -> USB
// -----------------------------------------------------------------------------

// rxLoop continuously receives from the UART into the ring. Each completed
// read advances the producer counter and the next reception is re-armed by
// looping; the producer never waits for the consumer.
func (b *Bridge) rxLoop(ctx context.Context) {
	defer b.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-b.armed:
	}

	buf := make([]byte, rxChunkSize)
	for {
		n, err := b.uart.ReadBlocking(ctx, buf)
		if err != nil {
			return
		}
		if n > 0 {
			b.ring.Produce(buf[:n])
		}
	}
}

// drainLoop periodically moves the ring backlog toward the USB side.
func (b *Bridge) drainLoop(ctx context.Context) {
	defer b.wg.Done()

	tick := time.NewTicker(b.drainEvery)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			b.drainTick()
		}
	}
}

// drainTick applies the overflow policy, then offers the contiguous
// pre-wrap run to the CDC channel. Partial acceptance advances the
// consumer counter by exactly the accepted count; zero acceptance leaves
// everything for the next tick.
func (b *Bridge) drainTick() {
	if b.ring.Pending() > b.ring.Capacity() {
		// Host is not consuming fast enough: dump the whole backlog.
		b.ring.DropBacklog()
		return
	}
	run := b.ring.Peek()
	if len(run) == 0 {
		return
	}
	if n := b.cdc.WriteData(run); n > 0 {
		b.ring.Advance(n)
	}
}

// -----------------------------------------------------------------------------
// USB -> UART
// -----------------------------------------------------------------------------

// DataReceived is the notification entry point invoked by the CDC stack
// whenever new bytes are available. Notifications coalesce; the transmit
// loop drains the channel until empty.
func (b *Bridge) DataReceived() {
	select {
	case b.txKick <- struct{}{}:
	default:
	}
}

// txLoop services DataReceived kicks: it reads whatever the CDC channel
// holds, hands it to the sink, and relays it out the UART. The blocking
// UART write returning is the send-complete event, so the inner loop is
// the "keep transmitting while more is available" chain.
func (b *Bridge) txLoop(ctx context.Context) {
	defer b.wg.Done()

	buf := make([]byte, usbChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.txKick:
		}
		for {
			n := b.cdc.ReadData(buf)
			if n <= 0 {
				break
			}
			chunk := buf[:n]
			if b.sink != nil {
				b.sink(chunk)
			}
			if _, err := b.uart.Write(chunk); err != nil {
				break
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Lifecycle callbacks from the USB stack
// -----------------------------------------------------------------------------

// Reset handles a USB bus reset: abort whatever is in flight and discard
// the unread backlog; the host renegotiates line coding afterwards.
func (b *Bridge) Reset() {
	b.abortInFlight()
	b.ring.DropBacklog()
	b.publishState("degraded", "bus_reset", nil)
}

// SetLineCoding validates and applies host-requested framing. Unsupported
// parameters reject the request without touching the current state. On
// success both stream counters restart from zero and UART reception is
// armed.
func (b *Bridge) SetLineCoding(lc types.LineCoding) error {
	switch lc.StopBits {
	case types.StopBits1, types.StopBits1_5, types.StopBits2:
	default:
		return errcode.BadLineCoding
	}
	switch lc.Parity {
	case types.ParityNone, types.ParityOdd, types.ParityEven:
	default:
		return errcode.BadLineCoding
	}
	if lc.DataBits < 5 || lc.DataBits > 8 {
		return errcode.BadLineCoding
	}

	b.abortInFlight()

	if b.fmtr != nil {
		b.fmtr.SetBaudRate(lc.BaudRate)
		if err := b.fmtr.SetFormat(lc.DataBits, lc.StopBits, lc.Parity); err != nil {
			return &errcode.E{C: errcode.BadLineCoding, Op: "set_format", Err: err}
		}
	}

	b.mu.Lock()
	b.lineCoding = lc
	b.mu.Unlock()

	b.ring.Reset()
	b.armOnce.Do(func() { close(b.armed) })

	b.publishState("up", "line_coding_applied", nil)
	return nil
}

// GetLineCoding returns the record stored by the last accepted
// SetLineCoding; the zero value before any negotiation.
func (b *Bridge) GetLineCoding() types.LineCoding {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineCoding
}

// SetControlLineState accepts DTR/RTS changes. They have no effect here.
func (b *Bridge) SetControlLineState(dtr, rts bool) {}

// Stats snapshots the stream counters.
func (b *Bridge) Stats() types.BridgeStats {
	return types.BridgeStats{
		ReceivedTotal:  b.ring.ReceivedTotal(),
		ForwardedTotal: b.ring.ForwardedTotal(),
		Dropped:        b.ring.Dropped(),
		TsMs:           time.Now().UnixMilli(),
	}
}

func (b *Bridge) abortInFlight() {
	if a, ok := b.uart.(hal.UARTAborter); ok {
		a.AbortSend()
		a.AbortReceive()
	}
}

func (b *Bridge) publishState(level, status string, err error) {
	if b.conn == nil {
		return
	}
	payload := map[string]any{
		"level":  level,
		"status": status,
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	b.conn.Publish(b.conn.NewMessage(bus.Topic{"bridge", "state"}, payload, true))
}
