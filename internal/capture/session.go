package capture

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusTimedOut Status = "timed_out"
	StatusFailed   Status = "failed"
)

// FetchSession scopes one logical extraction: one target, one pattern
// set, one response buffer. Sessions never share buffers.
type FetchSession struct {
	ID        string
	TargetID  string
	Patterns  []string
	StartedAt time.Time

	buffer *ResponseBuffer

	mu     sync.Mutex
	status Status
}

func NewFetchSession(targetID string, patterns []string) *FetchSession {
	return &FetchSession{
		ID:        uuid.NewString(),
		TargetID:  targetID,
		Patterns:  patterns,
		StartedAt: time.Now(),
		buffer:    NewResponseBuffer(),
		status:    StatusActive,
	}
}

func (s *FetchSession) Buffer() *ResponseBuffer {
	return s.buffer
}

func (s *FetchSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// setStatus transitions the session. Terminal states are sticky: once
// a session leaves ACTIVE it stays where it landed.
func (s *FetchSession) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return
	}
	s.status = st
}

// Reactivate returns a finished session to ACTIVE so a follow-up
// pagination round (reply fetch for orphaned comments) can merge into
// the same buffer. Failed sessions stay failed.
func (s *FetchSession) Reactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusFailed {
		return
	}
	s.status = StatusActive
}
