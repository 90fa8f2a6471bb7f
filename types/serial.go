package types

// ------------------------
// Serial line coding
// ------------------------

// Parity follows the CDC ACM encoding of bParityType.
type Parity uint8

const (
	ParityNone Parity = 0
	ParityOdd  Parity = 1
	ParityEven Parity = 2
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return "none"
	}
}

func (p Parity) MarshalJSON() ([]byte, error) { return []byte(`"` + p.String() + `"`), nil }

// StopBits follows the CDC ACM encoding of bCharFormat.
type StopBits uint8

const (
	StopBits1   StopBits = 0
	StopBits1_5 StopBits = 1
	StopBits2   StopBits = 2
)

func (s StopBits) String() string {
	switch s {
	case StopBits1_5:
		return "1.5"
	case StopBits2:
		return "2"
	default:
		return "1"
	}
}

// LineCoding is the framing record negotiated by the USB host. It is
// replaced wholesale on each successful negotiation; the zero value means
// "not yet negotiated".
type LineCoding struct {
	BaudRate uint32   `json:"baud"`
	StopBits StopBits `json:"stop_bits"`
	Parity   Parity   `json:"parity"`
	DataBits uint8    `json:"data_bits"`
}

// IsZero reports whether no negotiation has happened yet.
func (lc LineCoding) IsZero() bool {
	return lc == LineCoding{}
}
