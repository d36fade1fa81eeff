// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package reminder

import (
	"log"
	"sync"
	"time"
)

// DefaultDelay is how long the new head of a queue waits before being reminded.
const DefaultDelay = 60 * time.Second

// FireFunc receives the organization and the epoch the reminder was armed with.
type FireFunc func(orgID int64, epoch uint64)

type pending struct {
	timer *time.Timer
	epoch uint64
}

// Scheduler keeps at most one pending reminder per organization. Arming a
// new reminder stops the previous one for that organization.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[int64]*pending
	callback FireFunc
	delay    time.Duration
	stopped  bool
}

// NewScheduler creates a scheduler with the given delay
func NewScheduler(delay time.Duration, callback FireFunc) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{
		timers:   make(map[int64]*pending),
		callback: callback,
		delay:    delay,
	}
}

// SetCallback replaces the function invoked when a reminder fires.
func (s *Scheduler) SetCallback(callback FireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = callback
}

// SetDelay changes the delay for reminders armed from now on.
func (s *Scheduler) SetDelay(delay time.Duration) {
	if delay <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = delay
}

// Delay returns the current delay.
func (s *Scheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Arm schedules a reminder for the organization, superseding any pending one
// armed with the same or an older epoch. An older epoch than the pending one
// is ignored.
func (s *Scheduler) Arm(orgID int64, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if p, exists := s.timers[orgID]; exists {
		if epoch < p.epoch {
			log.Printf("Arm: orgId=%d ignoring epoch=%d older than pending epoch=%d", orgID, epoch, p.epoch)
			return
		}
		p.timer.Stop()
		log.Printf("Arm: orgId=%d superseding reminder epoch=%d", orgID, p.epoch)
	}

	p := &pending{epoch: epoch}
	p.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		// a superseded timer that was already running must not fire
		if s.timers[orgID] != p {
			s.mu.Unlock()
			return
		}
		delete(s.timers, orgID)
		callback := s.callback
		s.mu.Unlock()

		if callback != nil {
			callback(orgID, epoch)
		}
	})
	s.timers[orgID] = p
}

// Cancel cancels any pending reminder for the organization.
func (s *Scheduler) Cancel(orgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, exists := s.timers[orgID]; exists {
		p.timer.Stop()
		delete(s.timers, orgID)
	}
}

// Pending reports whether a reminder is armed for the organization.
func (s *Scheduler) Pending(orgID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[orgID]
	return ok
}

// Stop cancels all pending reminders. Arm is a no-op afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.timers {
		p.timer.Stop()
	}
	s.timers = make(map[int64]*pending)
	s.stopped = true
}
