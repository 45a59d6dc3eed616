package snapshot

import (
	"sync"
	"time"

	"emperror.dev/errors"
)

// ErrNoSnapshot is returned by Read before the first snapshot has been stored.
const ErrNoSnapshot = errors.Sentinel("no snapshot available yet")

// Snapshot is a serialized document produced for one collector tick.
// It must not be modified after it has been stored.
type Snapshot struct {
	Tick uint64
	Time time.Time
	Data []byte
}

// Publisher holds the most recent Snapshot for any number of concurrent
// readers. A single writer replaces it once per tick.
type Publisher struct {
	mu      sync.Mutex
	current *Snapshot
	changed chan struct{}
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{
		changed: make(chan struct{}),
	}
}

// Store publishes s, replacing the current snapshot. Snapshots that are not
// newer than the current one are ignored and Store returns false.
func (p *Publisher) Store(s *Snapshot) bool {
	if s == nil {
		return false
	}

	p.mu.Lock()
	if p.current != nil && s.Tick <= p.current.Tick {
		p.mu.Unlock()
		return false
	}
	p.current = s
	changed := p.changed
	p.changed = make(chan struct{})
	p.mu.Unlock()

	close(changed)
	return true
}

// Read returns the latest snapshot, or ErrNoSnapshot if none was stored yet.
// The returned snapshot is shared and must be treated as read-only.
func (p *Publisher) Read() (*Snapshot, error) {
	p.mu.Lock()
	s := p.current
	p.mu.Unlock()

	if s == nil {
		return nil, ErrNoSnapshot
	}
	return s, nil
}

// Changed returns a channel that is closed when the next snapshot is stored.
func (p *Publisher) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}
