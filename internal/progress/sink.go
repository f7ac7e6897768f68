package progress

import "sync"

// DefaultBuffer is the capacity of channels created by NewChannel
const DefaultBuffer = 1024

// Message is one progress line. Index groups lines that replace each
// other on a terminal; it only grows within one stream.
type Message struct {
	Index int
	Text  string
}

// Sink delivers messages to an optional consumer channel. Sends never
// block: a full, closed or nil channel drops the message.
type Sink struct {
	ch    chan<- Message
	owned bool
	once  sync.Once
}

// NewSink wraps a caller-owned channel. ch may be nil.
func NewSink(ch chan<- Message) *Sink {
	return &Sink{ch: ch}
}

// NewChannel creates a buffered channel and a sink feeding it
func NewChannel() (*Sink, chan Message) {
	ch := make(chan Message, DefaultBuffer)
	return &Sink{ch: ch, owned: true}, ch
}

// Close closes a channel created by NewChannel so consumers ranging over
// it finish. Caller-owned channels are left open.
func (s *Sink) Close() {
	if s == nil || !s.owned {
		return
	}
	s.once.Do(func() { close(s.ch) })
}

// Send delivers m and reports whether it was accepted
func (s *Sink) Send(m Message) (sent bool) {
	if s == nil || s.ch == nil {
		return false
	}
	// closed channel
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case s.ch <- m:
		return true
	default:
		return false
	}
}
