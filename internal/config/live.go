package config

import "sync/atomic"

// Live is a concurrently readable Tuning. Writers are HTTP handlers and
// viewers; the simulation loop reads it once per tick.
type Live struct {
	v atomic.Pointer[Tuning]
}

// NewLive creates a Live store holding t (sanitized).
func NewLive(t Tuning) *Live {
	l := &Live{}
	l.Set(t)
	return l
}

// Get returns the current tuning.
func (l *Live) Get() Tuning {
	if t := l.v.Load(); t != nil {
		return *t
	}
	return DefaultTuning()
}

// Set replaces the tuning and returns the sanitized value stored.
func (l *Live) Set(t Tuning) Tuning {
	t = t.Sanitize()
	l.v.Store(&t)
	return t
}

// Update applies fn to a copy of the current tuning and stores the result.
func (l *Live) Update(fn func(*Tuning)) Tuning {
	for {
		old := l.v.Load()
		next := DefaultTuning()
		if old != nil {
			next = *old
		}
		fn(&next)
		next = next.Sanitize()
		if l.v.CompareAndSwap(old, &next) {
			return next
		}
	}
}
