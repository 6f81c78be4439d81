package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAppendAssignsPageIndexes(t *testing.T) {
	b := NewResponseBuffer()

	idx0 := b.Append(CapturedResponse{RequestURL: "u0", Body: []byte(`{"page":0}`)})
	idx1 := b.Append(CapturedResponse{RequestURL: "u1", Body: []byte(`{"page":1}`)})
	idx2 := b.Append(CapturedResponse{RequestURL: "u2", Body: []byte(`{"page":2}`)})

	assert.Equal(t, 0, idx0)
	assert.Equal(t, 1, idx1)
	assert.Equal(t, 2, idx2)
	assert.Equal(t, 3, b.Len())

	snap := b.Snapshot()
	require.Len(t, snap, 3)
	for i, rec := range snap {
		assert.Equal(t, i, rec.PageIndex)
	}
	assert.Equal(t, "u0", snap[0].RequestURL)
	assert.Equal(t, "u2", snap[2].RequestURL)

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, "u2", last.RequestURL)
}

func TestBufferSnapshotIsACopy(t *testing.T) {
	b := NewResponseBuffer()
	b.Append(CapturedResponse{RequestURL: "u0"})

	snap := b.Snapshot()
	snap[0].RequestURL = "mutated"

	again := b.Snapshot()
	assert.Equal(t, "u0", again[0].RequestURL)
}

func TestBufferLastEmpty(t *testing.T) {
	b := NewResponseBuffer()
	_, ok := b.Last()
	assert.False(t, ok)
}

func TestWaitForNewReturnsOnAppend(t *testing.T) {
	b := NewResponseBuffer()

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Append(CapturedResponse{RequestURL: "u0"})
	}()

	start := time.Now()
	n, gotNew := b.WaitForNew(context.Background(), 0, 2*time.Second)
	assert.True(t, gotNew)
	assert.Equal(t, 1, n)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForNewQuietTimeout(t *testing.T) {
	b := NewResponseBuffer()
	b.Append(CapturedResponse{RequestURL: "u0"})

	n, gotNew := b.WaitForNew(context.Background(), 1, 30*time.Millisecond)
	assert.False(t, gotNew)
	assert.Equal(t, 1, n)
}

func TestWaitForNewReturnsImmediatelyWhenAhead(t *testing.T) {
	b := NewResponseBuffer()
	b.Append(CapturedResponse{RequestURL: "u0"})
	b.Append(CapturedResponse{RequestURL: "u1"})

	start := time.Now()
	n, gotNew := b.WaitForNew(context.Background(), 0, 5*time.Second)
	assert.True(t, gotNew)
	assert.Equal(t, 2, n)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForNewContextCancel(t *testing.T) {
	b := NewResponseBuffer()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, gotNew := b.WaitForNew(ctx, 0, 5*time.Second)
	assert.False(t, gotNew)
}
