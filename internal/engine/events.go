package engine

import (
	"sync"
)

// Event categories.
const (
	CategorySpawn = "spawn"
	CategoryHunt  = "hunt"
	CategoryNova  = "nova"
	CategoryBurst = "burst"
	CategoryDeath = "death"
	CategoryState = "state"
	CategoryPrune = "prune"
)

const (
	maxEvents      = 1000
	subscriberSize = 64
)

// Event is a notable occurrence in the simulation.
type Event struct {
	Tick        uint64         `json:"tick"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// eventLog keeps the most recent events, the ones not yet persisted, and
// fans new events out to subscribers. It is the only simulation structure
// touched from other goroutines, hence the mutex.
type eventLog struct {
	mu      sync.Mutex
	recent  []Event
	pending []Event
	subs    map[int]chan Event
	nextSub int
}

func newEventLog() *eventLog {
	return &eventLog{subs: make(map[int]chan Event)}
}

func (l *eventLog) emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.recent = append(l.recent, e)
	if len(l.recent) > maxEvents {
		l.recent = append(l.recent[:0:0], l.recent[len(l.recent)-maxEvents:]...)
	}
	l.pending = append(l.pending, e)
	if len(l.pending) > maxEvents {
		l.pending = append(l.pending[:0:0], l.pending[len(l.pending)-maxEvents:]...)
	}

	for _, ch := range l.subs {
		select {
		case ch <- e:
		default: // slow subscriber, drop
		}
	}
}

// EmitEvent records e and delivers it to subscribers.
func (s *Simulation) EmitEvent(e Event) {
	s.log.emit(e)
}

// RecentEvents returns up to limit of the newest events, oldest first.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()

	start := 0
	if limit > 0 && len(s.log.recent) > limit {
		start = len(s.log.recent) - limit
	}
	out := make([]Event, len(s.log.recent)-start)
	copy(out, s.log.recent[start:])
	return out
}

// DrainPending returns and clears events not yet handed to persistence.
func (s *Simulation) DrainPending() []Event {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()

	out := s.log.pending
	s.log.pending = nil
	return out
}

// Subscribe returns a channel receiving every new event until Unsubscribe.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()

	id := s.log.nextSub
	s.log.nextSub++
	ch := make(chan Event, subscriberSize)
	s.log.subs[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscription.
func (s *Simulation) Unsubscribe(id int) {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()

	if ch, ok := s.log.subs[id]; ok {
		close(ch)
		delete(s.log.subs, id)
	}
}
