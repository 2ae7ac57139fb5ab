// Package auth authenticates users against the records store and keeps the
// consecutive-failure lockout state per username.
package auth

import (
	"context"
	"sync"
	"time"
)

// Policy configures the lockout state machine: MaxFailures consecutive
// failures lock the username for LockDuration.
type Policy struct {
	MaxFailures  int
	LockDuration time.Duration
}

func (p Policy) normalized() Policy {
	if p.MaxFailures <= 0 {
		p.MaxFailures = 3
	}
	if p.LockDuration <= 0 {
		p.LockDuration = 5 * time.Minute
	}
	return p
}

// Status is the lockout state of one username. A zero Status is "clear".
type Status struct {
	Failures    int
	LockedUntil time.Time
}

func (s Status) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Remaining is the cool-down left at now, zero when not locked.
func (s Status) Remaining(now time.Time) time.Duration {
	if !s.Locked(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// AttemptStore holds failure counters. An expired lock reads as clear.
type AttemptStore interface {
	Status(ctx context.Context, username string) (Status, error)
	RecordFailure(ctx context.Context, username string) (Status, error)
	Reset(ctx context.Context, username string) error
	Policy() Policy
}

// MemoryStore keeps the counters in process memory. They are lost on
// restart.
type MemoryStore struct {
	mu      sync.Mutex
	policy  Policy
	now     func() time.Time
	entries map[string]Status
}

func NewMemoryStore(policy Policy) *MemoryStore {
	return &MemoryStore{
		policy:  policy.normalized(),
		now:     time.Now,
		entries: make(map[string]Status),
	}
}

// WithClock replaces the time source; tests use it to step over the
// cool-down.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

func (m *MemoryStore) Policy() Policy { return m.policy }

func (m *MemoryStore) Status(_ context.Context, username string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current(username), nil
}

func (m *MemoryStore) RecordFailure(_ context.Context, username string) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	st := m.current(username)
	if st.Locked(now) {
		return st, nil
	}

	st.Failures++
	if st.Failures >= m.policy.MaxFailures {
		st.LockedUntil = now.Add(m.policy.LockDuration)
	}
	m.entries[username] = st
	return st, nil
}

func (m *MemoryStore) Reset(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, username)
	return nil
}

// current must be called with mu held.
func (m *MemoryStore) current(username string) Status {
	st, ok := m.entries[username]
	if !ok {
		return Status{}
	}
	if !st.LockedUntil.IsZero() && !st.Locked(m.now()) {
		delete(m.entries, username)
		return Status{}
	}
	return st
}
