// Package command turns the byte stream arriving from the USB side into
// recognized AT commands and device side effects. The interpreter owns its
// line buffer and the stored display string; it must only ever be fed from
// one goroutine (the bridge's USB receive path).
package command

import (
	"strconv"
	"strings"

	"cdcbridge-go/hal"
)

const (
	// Line buffer capacity. Bytes past this are silently dropped; the
	// terminator still dispatches whatever fit.
	lineBufSize = 64

	// Stored display string capacity.
	displayMax = 49

	// Commands are terminated by a carriage return. LF is ordinary data.
	terminator = '\r'
)

// Config wires the interpreter to its collaborators. LEDs are the 8
// indicator outputs (index 0 is LED 1), Buttons the 4 inputs (active low:
// a pressed button reads low). Panel and Reply are optional.
type Config struct {
	LEDs    []hal.GPIOPin
	Buttons []hal.GPIOPin
	ADC     hal.ADC
	Panel   hal.DisplayPanel
	Reply   func(p []byte)
}

type Interpreter struct {
	cfg Config

	line [lineBufSize]byte
	n    int

	display [displayMax]byte
	dispLen int

	table []entry
}

// entry is one row of the ordered dispatch table: first matching prefix wins.
type entry struct {
	prefix string
	run    func(arg string)
}

func New(cfg Config) *Interpreter {
	it := &Interpreter{cfg: cfg}
	it.table = []entry{
		{"AT+LED", it.handleLED},
		{"AT+LCD=", it.handleLCD},
		{"AT+BUTTON", it.handleButton},
		{"AT+POT", it.handlePot},
	}
	return it
}

// Feed accumulates incoming bytes and dispatches on each terminator.
func (it *Interpreter) Feed(p []byte) {
	for _, b := range p {
		if b == terminator {
			it.dispatch(string(it.line[:it.n]))
			it.n = 0
			continue
		}
		if it.n < lineBufSize {
			it.line[it.n] = b
			it.n++
		}
	}
}

// dispatch prefix-matches the line against the table. Unmatched lines are
// dropped without a reply.
func (it *Interpreter) dispatch(line string) {
	for _, e := range it.table {
		if strings.HasPrefix(line, e.prefix) {
			e.run(line[len(e.prefix):])
			return
		}
	}
}

// DisplayString returns the stored display string.
func (it *Interpreter) DisplayString() string {
	return string(it.display[:it.dispLen])
}

func (it *Interpreter) reply(s string) {
	if it.cfg.Reply != nil {
		it.cfg.Reply([]byte(s))
	}
}

// -----------------------------------------------------------------------------
// AT+LED
// -----------------------------------------------------------------------------

// handleLED encodes the argument as a 4-bit value, most significant bit
// first, and walks all 8 outputs: output i+1 is set when bit i reads 1 and
// cleared otherwise, so outputs 5..8 always clear. Out-of-range values
// touch no outputs but still get a status line with the parsed value.
func (it *Interpreter) handleLED(arg string) {
	v := atoi(arg)
	if v >= 1 && v <= 8 {
		for i, pin := range it.cfg.LEDs {
			on := i < 4 && (v>>(3-i))&1 == 1
			pin.Set(on)
		}
	}
	it.reply("LED value set to: " + strconv.Itoa(v) + "\r\n")
}

// atoi parses a leading decimal integer: optional spaces and sign, then
// digits; anything after the digits is ignored and no digits means 0.
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	v := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		v = v*10 + int(s[i]-'0')
		i++
	}
	if neg {
		return -v
	}
	return v
}

// -----------------------------------------------------------------------------
// AT+LCD=
// -----------------------------------------------------------------------------

func (it *Interpreter) handleLCD(arg string) {
	if len(arg) > displayMax {
		arg = arg[:displayMax]
	}
	it.dispLen = copy(it.display[:], arg)

	if it.cfg.Panel != nil {
		_ = it.cfg.Panel.ClearDisplay()
		_ = it.cfg.Panel.Print(it.display[:it.dispLen])
	}
	it.reply("LCD string set to: " + arg + "\r\n")
}

// -----------------------------------------------------------------------------
// AT+BUTTON
// -----------------------------------------------------------------------------

// buttonReplies is the priority ladder for the button report: first row
// whose buttons are all pressed wins. The catch-all zero mask must stay
// last.
var buttonReplies = []struct {
	mask uint8 // bit i = button i+1
	text string
}{
	{0b1111, "All buttons are pressed\r\n"},
	{0b0111, "Button 1, Button 2 and Button 3 are pressed\r\n"},
	{0b1011, "Button 1, Button 2 and Button 4 are pressed\r\n"},
	{0b1101, "Button 1, Button 3 and Button 4 are pressed\r\n"},
	{0b1110, "Button 2, Button 3 and Button 4 are pressed\r\n"},
	{0b0011, "Button 1 and Button 2 are pressed\r\n"},
	{0b0101, "Button 1 and Button 3 are pressed\r\n"},
	{0b1001, "Button 1 and Button 4 are pressed\r\n"},
	{0b0110, "Button 2 and Button 3 are pressed\r\n"},
	{0b1010, "Button 2 and Button 4 are pressed\r\n"},
	{0b1100, "Button 3 and Button 4 are pressed\r\n"},
	{0b0001, "Button 1 is pressed\r\n"},
	{0b0010, "Button 2 is pressed\r\n"},
	{0b0100, "Button 3 is pressed\r\n"},
	{0b1000, "Button 4 is pressed\r\n"},
	{0b0000, "No button is pressed\r\n"},
}

func (it *Interpreter) handleButton(string) {
	var pressed uint8
	for i, pin := range it.cfg.Buttons {
		if !pin.Get() { // active low
			pressed |= 1 << i
		}
	}
	for _, r := range buttonReplies {
		if pressed&r.mask == r.mask {
			it.reply(r.text)
			return
		}
	}
}

// -----------------------------------------------------------------------------
// AT+POT
// -----------------------------------------------------------------------------

// handlePot performs the blocking analog read. A driver error degrades to
// reporting zero; the stream never sees an error.
func (it *Interpreter) handlePot(string) {
	var v uint16
	if it.cfg.ADC != nil {
		if raw, err := it.cfg.ADC.ReadRaw(); err == nil {
			v = raw
		}
	}
	it.reply("Potentiometer value: " + strconv.Itoa(int(v)) + "\r\n")
}
