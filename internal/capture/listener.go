package capture

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

// BodyFetcher retrieves the body of a finished network request. The
// default implementation goes through CDP; tests inject their own.
type BodyFetcher func(ctx context.Context, requestID network.RequestID) ([]byte, error)

type ListenerConfig struct {
	// QueueSize bounds the event queue between the browser callback
	// and the decode worker. Events arriving on a full queue are
	// dropped and counted, never blocked on.
	QueueSize int
	// Fetch overrides the CDP body fetcher (tests).
	Fetch BodyFetcher
}

type capturedEvent struct {
	requestID network.RequestID
	url       string
	pattern   string
}

// NetworkListener subscribes to the tab's network events, filters
// responses by the session's URL patterns, decodes bodies off the
// browser's event path, and appends matches to the session buffer.
// It never initiates navigation.
type NetworkListener struct {
	tabCtx  context.Context
	session *FetchSession
	logger  *logrus.Logger

	fetch BodyFetcher
	queue chan capturedEvent
	quit  chan struct{}
	wg    sync.WaitGroup

	closed       atomic.Bool
	decodeErrors atomic.Int64
	dropped      atomic.Int64

	// pending maps in-flight request IDs to their matched pattern so
	// the body is only fetched once loading finishes.
	pending sync.Map
}

func NewNetworkListener(tabCtx context.Context, session *FetchSession, logger *logrus.Logger, cfg ListenerConfig) *NetworkListener {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	l := &NetworkListener{
		tabCtx:  tabCtx,
		session: session,
		logger:  logger,
		fetch:   cfg.Fetch,
		queue:   make(chan capturedEvent, cfg.QueueSize),
		quit:    make(chan struct{}),
	}
	if l.fetch == nil {
		l.fetch = l.cdpBodyFetcher
	}
	return l
}

// Start enables the network domain and begins buffering matching
// responses until Stop is called or the tab context ends.
func (l *NetworkListener) Start() error {
	if err := chromedp.Run(l.tabCtx, network.Enable()); err != nil {
		return err
	}

	chromedp.ListenTarget(l.tabCtx, l.onEvent)

	l.wg.Add(1)
	go l.decodeLoop()

	l.logger.Debugf("Network listener started for session %s, patterns: %v", l.session.ID, l.session.Patterns)
	return nil
}

// Stop tears down the subscription. Records already buffered remain
// available for partial assembly.
func (l *NetworkListener) Stop() {
	if l.closed.Swap(true) {
		return
	}
	close(l.quit)
	l.wg.Wait()
	l.logger.Debugf("Network listener stopped: %d records, %d decode errors, %d dropped",
		l.session.Buffer().Len(), l.DecodeErrors(), l.Dropped())
}

func (l *NetworkListener) DecodeErrors() int64 {
	return l.decodeErrors.Load()
}

func (l *NetworkListener) Dropped() int64 {
	return l.dropped.Load()
}

// onEvent runs on the browser event path and must not block.
func (l *NetworkListener) onEvent(ev interface{}) {
	if l.closed.Load() {
		return
	}

	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if pattern, ok := MatchPattern(e.Response.URL, l.session.Patterns); ok {
			l.pending.Store(e.RequestID, capturedEvent{
				requestID: e.RequestID,
				url:       e.Response.URL,
				pattern:   pattern,
			})
		}
	case *network.EventLoadingFinished:
		v, ok := l.pending.LoadAndDelete(e.RequestID)
		if !ok {
			return
		}
		select {
		case l.queue <- v.(capturedEvent):
		default:
			l.dropped.Add(1)
		}
	case *network.EventLoadingFailed:
		l.pending.Delete(e.RequestID)
	}
}

// decodeLoop is the sole writer into the session buffer.
func (l *NetworkListener) decodeLoop() {
	defer l.wg.Done()

	seen := make(map[uint64]struct{})

	for {
		select {
		case ev := <-l.queue:
			l.capture(ev, seen)
		case <-l.quit:
			return
		case <-l.tabCtx.Done():
			return
		}
	}
}

func (l *NetworkListener) capture(ev capturedEvent, seen map[uint64]struct{}) {
	body, err := l.fetch(l.tabCtx, ev.requestID)
	if err != nil {
		l.logger.Debugf("Failed to fetch response body for %s: %v", ev.url, err)
		l.decodeErrors.Add(1)
		return
	}

	if !json.Valid(body) {
		l.logger.Debugf("Dropping non-JSON response body from %s", ev.url)
		l.decodeErrors.Add(1)
		return
	}

	// The browser may replay a request; dedupe on URL plus body hash.
	key := captureKey(ev.url, body)
	if _, dup := seen[key]; dup {
		l.logger.Debugf("Skipping duplicate capture of %s", ev.url)
		return
	}
	seen[key] = struct{}{}

	idx := l.session.Buffer().Append(CapturedResponse{
		RequestURL:     ev.url,
		MatchedPattern: ev.pattern,
		CapturedAt:     timeNow(),
		Body:           body,
	})
	l.logger.Debugf("Captured page %d from %s", idx, ev.url)
}

func (l *NetworkListener) cdpBodyFetcher(ctx context.Context, requestID network.RequestID) ([]byte, error) {
	c := chromedp.FromContext(l.tabCtx)
	return network.GetResponseBody(requestID).Do(cdp.WithExecutor(ctx, c.Target))
}

// MatchPattern reports whether url matches any pattern in the
// allowlist. A pattern matches when the URL contains it; "*" is
// treated as a wildcard separator within the pattern.
func MatchPattern(url string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if matchOne(url, p) {
			return p, true
		}
	}
	return "", false
}

func matchOne(url, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return strings.Contains(url, pattern)
	}

	rest := url
	for _, part := range strings.Split(pattern, "*") {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	return true
}

func captureKey(url string, body []byte) uint64 {
	h := fnv.New64a()
	h.Write([]byte(url))
	h.Write(body)
	return h.Sum64()
}
