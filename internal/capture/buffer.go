package capture

import (
	"context"
	"sync"
	"time"
)

// CapturedResponse is one network response recorded by the listener.
// Immutable once appended; PageIndex is assigned by the buffer in
// capture order.
type CapturedResponse struct {
	RequestURL     string
	MatchedPattern string
	CapturedAt     time.Time
	Body           []byte
	PageIndex      int
}

// ResponseBuffer is an append-only store of captured responses for one
// fetch session. The network listener is the only writer; the
// pagination driver and the assembler read from it.
type ResponseBuffer struct {
	mu      sync.Mutex
	records []CapturedResponse
	changed chan struct{}
}

func NewResponseBuffer() *ResponseBuffer {
	return &ResponseBuffer{
		changed: make(chan struct{}),
	}
}

// Append stores a record and returns its page index. Records keep
// capture order; indexes are monotonically increasing.
func (b *ResponseBuffer) Append(rec CapturedResponse) int {
	b.mu.Lock()
	rec.PageIndex = len(b.records)
	b.records = append(b.records, rec)
	ch := b.changed
	b.changed = make(chan struct{})
	b.mu.Unlock()

	close(ch)
	return rec.PageIndex
}

func (b *ResponseBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Snapshot returns a copy of all records in capture order.
func (b *ResponseBuffer) Snapshot() []CapturedResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]CapturedResponse, len(b.records))
	copy(out, b.records)
	return out
}

// Last returns the most recently captured record, if any.
func (b *ResponseBuffer) Last() (CapturedResponse, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) == 0 {
		return CapturedResponse{}, false
	}
	return b.records[len(b.records)-1], true
}

// WaitForNew blocks until the buffer holds more than since records,
// the quiet period elapses, or ctx is cancelled. It returns the
// current record count and whether new records arrived.
func (b *ResponseBuffer) WaitForNew(ctx context.Context, since int, quiet time.Duration) (int, bool) {
	timer := time.NewTimer(quiet)
	defer timer.Stop()

	for {
		b.mu.Lock()
		n := len(b.records)
		ch := b.changed
		b.mu.Unlock()

		if n > since {
			return n, true
		}

		select {
		case <-ch:
		case <-timer.C:
			return n, false
		case <-ctx.Done():
			return n, false
		}
	}
}
