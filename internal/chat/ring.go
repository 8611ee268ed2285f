package chat

import "github.com/ashureev/fitcoach/internal/coach"

// MessageRing keeps the most recent messages of a conversation for replay.
// When full, the oldest message is overwritten. It is not safe for
// concurrent use; Conversation serializes access.
type MessageRing struct {
	buf  []coach.Message
	head int // next write position
	full bool
}

// NewMessageRing creates a ring holding up to size messages.
func NewMessageRing(size int) *MessageRing {
	if size <= 0 {
		size = 200
	}
	return &MessageRing{buf: make([]coach.Message, size)}
}

// Push appends msgs, evicting the oldest ones when the ring is full.
func (r *MessageRing) Push(msgs ...coach.Message) {
	for _, m := range msgs {
		r.buf[r.head] = m
		r.head = (r.head + 1) % len(r.buf)
		if r.head == 0 {
			r.full = true
		}
	}
}

// Snapshot returns the stored messages oldest first.
func (r *MessageRing) Snapshot() []coach.Message {
	if !r.full {
		return append([]coach.Message(nil), r.buf[:r.head]...)
	}
	out := make([]coach.Message, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	return append(out, r.buf[:r.head]...)
}

// Len returns the number of stored messages.
func (r *MessageRing) Len() int {
	if r.full {
		return len(r.buf)
	}
	return r.head
}

// Capacity returns the maximum number of stored messages.
func (r *MessageRing) Capacity() int {
	return len(r.buf)
}

// Reset forgets every message.
func (r *MessageRing) Reset() {
	clear(r.buf)
	r.head = 0
	r.full = false
}
