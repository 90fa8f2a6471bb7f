// Package bus is a small in-process pub/sub bus. Topics are token paths
// stored in a trie; subscriptions may use "+" (one token) and "#" (rest of
// path) wildcards, publishes are always concrete. Retained messages are
// kept at their concrete node and replayed to new subscribers.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is one element of a topic path: a string or an int.
type Token = any

// Topic is a sequence of tokens.
type Topic []Token

// T builds a topic from its tokens. Tokens must be strings or ints; anything
// else would break trie lookup, so T panics early instead.
func T(parts ...Token) Topic {
	for _, p := range parts {
		switch p.(type) {
		case string, int:
		default:
			panic("bus: topic tokens must be string or int")
		}
	}
	return Topic(parts)
}

const (
	WildOne  = "+"
	WildRest = "#"
)

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

type Bus struct {
	mu   sync.RWMutex
	root *node
	qLen int
}

// NewBus creates a bus with the given per-subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		if n.children == nil {
			n.children = make(map[Token]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	// Replay retained messages matching the pattern.
	var retained []*Message
	collectRetained(b.root, topic, &retained)
	for _, m := range retained {
		send(sub, m)
	}
}

func collectRetained(n *node, pattern Topic, out *[]*Message) {
	if len(pattern) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pattern[0] {
	case WildRest:
		n.walk(func(m *Message) { *out = append(*out, m) })
	case WildOne:
		for _, c := range n.children {
			collectRetained(c, pattern[1:], out)
		}
	default:
		if c, ok := n.children[pattern[0]]; ok {
			collectRetained(c, pattern[1:], out)
		}
	}
}

func (n *node) walk(f func(*Message)) {
	if n.retained != nil {
		f(n.retained)
	}
	for _, c := range n.children {
		c.walk(f)
	}
}

// Publish delivers a message to all matching subscribers. The topic must be
// concrete (no wildcards).
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deliver(b.root, msg.Topic, msg)

	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic {
			if n.children == nil {
				n.children = make(map[Token]*node)
			}
			child, ok := n.children[tok]
			if !ok {
				child = &node{}
				n.children[tok] = child
			}
			n = child
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
}

func deliver(n *node, rest Topic, msg *Message) {
	if h, ok := n.children[Token(WildRest)]; ok {
		for _, sub := range h.subs {
			send(sub, msg)
		}
	}
	if len(rest) == 0 {
		for _, sub := range n.subs {
			send(sub, msg)
		}
		return
	}
	if c, ok := n.children[rest[0]]; ok {
		deliver(c, rest[1:], msg)
	}
	if c, ok := n.children[Token(WildOne)]; ok {
		deliver(c, rest[1:], msg)
	}
}

func send(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		// Queue full: drop the oldest so the latest always lands.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	mu   sync.Mutex
	subs []*Subscription
	id   string
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

// NewMessage builds a message for this bus.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (c *Connection) ID() string { return c.id }

// NewMessage builds a message bound for this connection's bus.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Reply publishes a response to the request's ReplyTo topic, if any.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

var replySeq atomic.Uint32

// Request stamps the message with a fresh ReplyTo topic, subscribes to it,
// and publishes the request. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	msg.ReplyTo = Topic{"reply", c.id, int(replySeq.Add(1))}
	sub := c.Subscribe(msg.ReplyTo)
	c.bus.Publish(msg)
	return sub
}

// RequestWait issues a request and blocks for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case m := <-sub.ch:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}
