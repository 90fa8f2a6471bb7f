// Package ring provides the receive buffer used by the stream bridge: a
// single-producer, single-consumer byte ring addressed by two monotonic
// counters. The producer never blocks and never fails; when the consumer
// falls behind by more than the capacity, the consumer discards the whole
// backlog in one step rather than evicting piecemeal.
package ring

import "sync/atomic"

// Ring is a fixed-capacity byte ring. Capacity must be a power of two so
// that positions derive from the counters by masking. The write counter is
// owned by the producer, the read counter by the consumer; both are atomics
// because each side reads the other's counter.
type Ring struct {
	buf  []byte
	mask uint32

	rd      atomic.Uint32 // bytes handed to the consumer (monotonic)
	wr      atomic.Uint32 // bytes written by the producer (monotonic)
	dropped atomic.Uint32 // bytes discarded by the overflow policy

	readable chan struct{} // 0 -> >0 available edge
}

// New returns a ring of the given capacity.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("ring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Capacity returns the fixed buffer capacity in bytes.
func (r *Ring) Capacity() int { return len(r.buf) }

// Pending returns the unread span: write counter minus read counter.
// The subtraction is wrap-safe uint32 arithmetic. The result can exceed
// Capacity when the producer has lapped the consumer; the consumer is then
// expected to call DropBacklog.
func (r *Ring) Pending() int {
	return int(r.wr.Load() - r.rd.Load())
}

// ReceivedTotal returns the producer counter.
func (r *Ring) ReceivedTotal() uint32 { return r.wr.Load() }

// ForwardedTotal returns the consumer counter.
func (r *Ring) ForwardedTotal() uint32 { return r.rd.Load() }

// Dropped returns the total bytes discarded by DropBacklog.
func (r *Ring) Dropped() uint32 { return r.dropped.Load() }

// Produce copies p into the ring and advances the write counter by len(p).
// It always succeeds: unread data is overwritten when the consumer lags.
// Only the producer may call Produce.
func (r *Ring) Produce(p []byte) int {
	n := len(p)
	if n == 0 {
		return 0
	}
	wr := r.wr.Load()
	beforeAvail := wr - r.rd.Load()

	// Only the final Capacity bytes of an oversized chunk can survive.
	src := p
	start := wr
	if n > len(r.buf) {
		skip := n - len(r.buf)
		src = p[skip:]
		start += uint32(skip)
	}

	idx := start & r.mask
	first := int(r.size() - idx)
	if first > len(src) {
		first = len(src)
	}
	copy(r.buf[idx:int(idx)+first], src[:first])
	if second := len(src) - first; second > 0 {
		copy(r.buf[:second], src[first:])
	}
	r.wr.Store(wr + uint32(n)) // release

	if beforeAvail == 0 {
		select {
		case r.readable <- struct{}{}:
		default:
		}
	}
	return n
}

// Peek returns the contiguous unread run starting at the read position,
// clipped at the wrap boundary and at Capacity. The slice aliases the ring
// storage and is valid until the next Produce overwrites it; the consumer
// should hand it off before the producer can lap. Only the consumer may
// call Peek.
func (r *Ring) Peek() []byte {
	rd := r.rd.Load()
	avail := r.wr.Load() - rd // acquire
	if avail == 0 {
		return nil
	}
	if avail > r.size() {
		avail = r.size()
	}
	idx := rd & r.mask
	run := r.size() - idx
	if run > avail {
		run = avail
	}
	return r.buf[idx : idx+run]
}

// Advance commits n consumed bytes. Only the consumer may call Advance.
func (r *Ring) Advance(n int) {
	if n <= 0 {
		return
	}
	r.rd.Store(r.rd.Load() + uint32(n))
}

// DropBacklog advances the read counter to the write counter, discarding
// every unread byte, and returns the number discarded. This is the overflow
// policy: the whole backlog goes, not the oldest fraction.
func (r *Ring) DropBacklog() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := wr - rd
	if n == 0 {
		return 0
	}
	r.rd.Store(wr)
	r.dropped.Add(n)
	return int(n)
}

// Reset zeroes both counters, invalidating any unread data. Used when the
// link is renegotiated; callers must quiesce the producer first.
func (r *Ring) Reset() {
	r.rd.Store(0)
	r.wr.Store(0)
}

// Readable signals the empty -> non-empty transition (coalesced).
func (r *Ring) Readable() <-chan struct{} { return r.readable }
