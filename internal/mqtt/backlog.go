package mqtt

import "github.com/rs/zerolog"

// pending is a serialized message held until the broker is reachable again.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog holds lifecycle events published while the broker is unreachable.
//
// A retained message supersedes any earlier retained message on the same
// topic, since the broker only keeps the last one. When full, the oldest
// entry is dropped.
//
// Not safe for concurrent use; callers synchronize.
type backlog struct {
	entries  []pending
	capacity int
	full     bool
	log      zerolog.Logger
}

func newBacklog(capacity int, log zerolog.Logger) *backlog {
	return &backlog{
		entries:  make([]pending, 0, capacity),
		capacity: capacity,
		log:      log,
	}
}

func (b *backlog) add(p pending) {
	if p.retained {
		for i, e := range b.entries {
			if e.retained && e.topic == p.topic {
				b.entries = append(b.entries[:i], b.entries[i+1:]...)
				break
			}
		}
	}
	if len(b.entries) == b.capacity {
		if !b.full {
			b.log.Warn().Int("capacity", b.capacity).Msg("mqtt backlog full, dropping oldest")
			b.full = true
		}
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:len(b.entries)-1]
	}
	b.entries = append(b.entries, p)
}

// take empties the backlog and returns its entries, oldest first.
func (b *backlog) take() []pending {
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]pending, len(b.entries))
	copy(out, b.entries)
	b.entries = b.entries[:0]
	b.full = false
	return out
}

func (b *backlog) size() int {
	return len(b.entries)
}
