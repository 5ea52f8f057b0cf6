package core

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/oklog/ulid/v2"
)

// History is the append-only message log of one room.
// There is no cap and no eviction; it lives as long as the process.
type History struct {
	mu      sync.Mutex
	msgs    []domain.Message
	entropy *ulid.MonotonicEntropy
	lastMS  uint64
	now     func() time.Time
}

func NewHistory() *History {
	return &History{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Append fills in ID and Timestamp when absent and stores the message.
// The returned copy is what gets fanned out to the room.
func (h *History) Append(msg domain.Message) domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now.UTC().Truncate(time.Millisecond)
	}
	if msg.ID == (ulid.ULID{}) {
		msg.ID = h.nextID(now)
	}
	h.msgs = append(h.msgs, msg)
	return msg
}

// nextID never goes back in time so ids sort in append order; caller holds h.mu.
func (h *History) nextID(now time.Time) ulid.ULID {
	ms := ulid.Timestamp(now)
	if ms < h.lastMS {
		ms = h.lastMS
	}
	for {
		id, err := ulid.New(ms, h.entropy)
		if err == nil {
			h.lastMS = ms
			return id
		}
		if !errors.Is(err, ulid.ErrMonotonicOverflow) {
			return ulid.Make()
		}
		ms++
	}
}

// All returns a copy of the full history, oldest first.
func (h *History) All() []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}
