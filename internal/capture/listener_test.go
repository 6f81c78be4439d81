package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern(t *testing.T) {
	patterns := []string{"/api/comment/list/", "/api/post/item_list/*count=10"}

	tests := []struct {
		url     string
		pattern string
		ok      bool
	}{
		{"https://www.tiktok.com/api/comment/list/?aweme_id=1", "/api/comment/list/", true},
		{"https://www.tiktok.com/api/post/item_list/?count=10&cursor=0", "/api/post/item_list/*count=10", true},
		{"https://www.tiktok.com/api/post/item_list/?count=20", "", false},
		{"https://www.tiktok.com/api/recommend/", "", false},
		{"https://www.tiktok.com/", "", false},
	}

	for _, tt := range tests {
		pattern, ok := MatchPattern(tt.url, patterns)
		assert.Equal(t, tt.ok, ok, "url: %s", tt.url)
		assert.Equal(t, tt.pattern, pattern, "url: %s", tt.url)
	}
}

func TestMatchPatternWildcardOrder(t *testing.T) {
	// Fragments must appear in order.
	_, ok := MatchPattern("https://x.com/b/then/a", []string{"/a/*/b/"})
	assert.False(t, ok)

	_, ok = MatchPattern("https://x.com/a/then/b/", []string{"/a/*/b/"})
	assert.True(t, ok)
}

func newTestListener(session *FetchSession, bodies map[network.RequestID][]byte, queueSize int) *NetworkListener {
	fetch := func(ctx context.Context, id network.RequestID) ([]byte, error) {
		body, ok := bodies[id]
		if !ok {
			return nil, errors.New("no body available")
		}
		return body, nil
	}
	return NewNetworkListener(context.Background(), session, testLogger(), ListenerConfig{
		QueueSize: queueSize,
		Fetch:     fetch,
	})
}

func TestCaptureAppendsValidJSON(t *testing.T) {
	session := NewFetchSession("video-1", []string{"/api/comment/list/"})
	bodies := map[network.RequestID][]byte{
		"req-1": []byte(`{"comments":[],"has_more":true}`),
	}
	l := newTestListener(session, bodies, 16)

	seen := make(map[uint64]struct{})
	l.capture(capturedEvent{requestID: "req-1", url: "https://t/api/comment/list/?c=1", pattern: "/api/comment/list/"}, seen)

	require.Equal(t, 1, session.Buffer().Len())
	rec, ok := session.Buffer().Last()
	require.True(t, ok)
	assert.Equal(t, "/api/comment/list/", rec.MatchedPattern)
	assert.False(t, rec.CapturedAt.IsZero())
	assert.Zero(t, l.DecodeErrors())
}

func TestCaptureCountsDecodeFailures(t *testing.T) {
	session := NewFetchSession("video-2", []string{"/api/comment/list/"})
	bodies := map[network.RequestID][]byte{
		"req-html": []byte(`<html>not json</html>`),
	}
	l := newTestListener(session, bodies, 16)
	seen := make(map[uint64]struct{})

	// Body fetch failure.
	l.capture(capturedEvent{requestID: "req-gone", url: "u1"}, seen)
	// Non-JSON body.
	l.capture(capturedEvent{requestID: "req-html", url: "u2"}, seen)

	assert.Equal(t, int64(2), l.DecodeErrors())
	assert.Zero(t, session.Buffer().Len())
}

func TestCaptureDeduplicatesReplayedResponses(t *testing.T) {
	session := NewFetchSession("video-3", []string{"/api/comment/list/"})
	bodies := map[network.RequestID][]byte{
		"req-1": []byte(`{"cursor":20}`),
		"req-2": []byte(`{"cursor":20}`),
		"req-3": []byte(`{"cursor":40}`),
	}
	l := newTestListener(session, bodies, 16)
	seen := make(map[uint64]struct{})

	url := "https://t/api/comment/list/?aweme_id=9"
	l.capture(capturedEvent{requestID: "req-1", url: url}, seen)
	l.capture(capturedEvent{requestID: "req-2", url: url}, seen)
	l.capture(capturedEvent{requestID: "req-3", url: url}, seen)

	assert.Equal(t, 2, session.Buffer().Len())
	assert.Zero(t, l.DecodeErrors())
}

func TestOnEventFiltersAndQueues(t *testing.T) {
	session := NewFetchSession("video-4", []string{"/api/comment/list/"})
	l := newTestListener(session, nil, 16)

	l.onEvent(&network.EventResponseReceived{
		RequestID: "req-1",
		Response:  &network.Response{URL: "https://t/api/comment/list/?p=1"},
	})
	l.onEvent(&network.EventResponseReceived{
		RequestID: "req-2",
		Response:  &network.Response{URL: "https://t/static/app.js"},
	})
	l.onEvent(&network.EventLoadingFinished{RequestID: "req-1"})
	l.onEvent(&network.EventLoadingFinished{RequestID: "req-2"})

	require.Len(t, l.queue, 1)
	ev := <-l.queue
	assert.Equal(t, network.RequestID("req-1"), ev.requestID)
}

func TestOnEventDropsWhenQueueFull(t *testing.T) {
	session := NewFetchSession("video-5", []string{"/api/"})
	l := newTestListener(session, nil, 1)

	for i := 0; i < 3; i++ {
		id := network.RequestID(fmt.Sprintf("req-%d", i))
		l.onEvent(&network.EventResponseReceived{
			RequestID: id,
			Response:  &network.Response{URL: fmt.Sprintf("https://t/api/x?p=%d", i)},
		})
		l.onEvent(&network.EventLoadingFinished{RequestID: id})
	}

	assert.Equal(t, int64(2), l.Dropped())
}

func TestOnEventLoadingFailedClearsPending(t *testing.T) {
	session := NewFetchSession("video-6", []string{"/api/"})
	l := newTestListener(session, nil, 16)

	l.onEvent(&network.EventResponseReceived{
		RequestID: "req-1",
		Response:  &network.Response{URL: "https://t/api/x"},
	})
	l.onEvent(&network.EventLoadingFailed{RequestID: "req-1"})
	l.onEvent(&network.EventLoadingFinished{RequestID: "req-1"})

	assert.Empty(t, l.queue)
}
