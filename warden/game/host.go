package game

import "sync"

// StoppableHost is a Host that may be stopped once the worlds behind it have closed. Functions passed
// to Exec after Stop are never run, and waiting on any channel returned by Exec no longer blocks.
type StoppableHost struct {
	h Host

	once sync.Once
	stop chan struct{}
}

// NewStoppableHost ...
func NewStoppableHost(h Host) *StoppableHost {
	return &StoppableHost{h: h, stop: make(chan struct{})}
}

// Exec ...
func (s *StoppableHost) Exec(f func(v View)) <-chan struct{} {
	done := make(chan struct{})
	select {
	case <-s.stop:
		close(done)
		return done
	default:
	}
	inner := s.h.Exec(f)
	go func() {
		defer close(done)
		select {
		case <-inner:
		case <-s.stop:
		}
	}()
	return done
}

// Stop stops the host. It is safe to call Stop more than once.
func (s *StoppableHost) Stop() {
	s.once.Do(func() { close(s.stop) })
}

