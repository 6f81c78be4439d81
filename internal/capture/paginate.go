package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

type PageAction string

const (
	ActionScroll        PageAction = "scroll"
	ActionClickLoadMore PageAction = "click_load_more"
)

// Pager performs the page-level actions that make the site request the
// next batch of results. Implementations wrap a real browser driver.
type Pager interface {
	Scroll(ctx context.Context, deltaY int) error
	ClickLoadMore(ctx context.Context) error
}

// Gate is consulted before every page action. ratelimit.RateGate
// satisfies it.
type Gate interface {
	Acquire(ctx context.Context, weight int) error
}

// TransientDriverError marks a scroll/click failure that is worth
// retrying before the session is failed.
type TransientDriverError struct {
	Action PageAction
	Err    error
}

func (e *TransientDriverError) Error() string {
	return fmt.Sprintf("transient driver error during %s: %v", e.Action, e.Err)
}

func (e *TransientDriverError) Unwrap() error { return e.Err }

// StopPolicy decides when a pagination loop is done.
type StopPolicy struct {
	// MaxPages stops after this many records captured during the run;
	// 0 means no cap. Records already in the buffer from an earlier
	// round do not count against it.
	MaxPages int
	// MaxQuietRounds stops after this many consecutive iterations
	// with no new records.
	MaxQuietRounds int
	// QuietTimeout is how long each iteration waits for a new record.
	QuietTimeout time.Duration
	// HardCeiling fails the whole run if it is still going past this
	// wall-clock duration.
	HardCeiling time.Duration
	// EndMarker inspects the newest payload for an explicit
	// end-of-data signal. Defaults to a has_more/hasMore check.
	EndMarker func(body []byte) bool
}

func (p *StopPolicy) applyDefaults() {
	if p.MaxQuietRounds <= 0 {
		p.MaxQuietRounds = 3
	}
	if p.QuietTimeout <= 0 {
		p.QuietTimeout = 5 * time.Second
	}
	if p.HardCeiling <= 0 {
		p.HardCeiling = 120 * time.Second
	}
	if p.EndMarker == nil {
		p.EndMarker = HasMoreEnded
	}
}

// HasMoreEnded reports whether the payload carries an explicit
// "no more data" signal.
func HasMoreEnded(body []byte) bool {
	hm := gjson.GetBytes(body, "has_more")
	if !hm.Exists() {
		hm = gjson.GetBytes(body, "hasMore")
	}
	return hm.Exists() && !hm.Bool()
}

// PaginationDriver repeatedly triggers a page action and polls the
// session buffer for new captures until the stop policy fires. All
// browser interaction is strictly sequential.
type PaginationDriver struct {
	pager  Pager
	gate   Gate
	logger *logrus.Logger

	scrollDelta   int
	retryAttempts int
	retryDelay    time.Duration
}

func NewPaginationDriver(pager Pager, gate Gate, logger *logrus.Logger) *PaginationDriver {
	return &PaginationDriver{
		pager:         pager,
		gate:          gate,
		logger:        logger,
		scrollDelta:   500,
		retryAttempts: 3,
		retryDelay:    2 * time.Second,
	}
}

// Run drives the pagination loop for the session and returns its final
// status. COMPLETE means at least one record was captured before the
// loop stopped; TIMED_OUT means the loop stopped empty; FAILED means
// the hard ceiling, cancellation, or a non-recoverable driver error
// ended the run.
func (d *PaginationDriver) Run(ctx context.Context, session *FetchSession, action PageAction, policy StopPolicy) Status {
	policy.applyDefaults()

	buffer := session.Buffer()
	deadline := time.Now().Add(policy.HardCeiling)
	start := buffer.Len()
	seen := start
	quietRounds := 0
	iteration := 0

	for {
		iteration++

		if err := ctx.Err(); err != nil {
			d.logger.Warnf("Session %s cancelled after %d iterations", session.ID, iteration-1)
			session.setStatus(StatusFailed)
			return session.Status()
		}

		if time.Now().After(deadline) {
			d.logger.Errorf("Session %s exceeded hard ceiling of %s", session.ID, policy.HardCeiling)
			session.setStatus(StatusFailed)
			return session.Status()
		}

		if err := d.gate.Acquire(ctx, 1); err != nil {
			d.logger.Errorf("Rate gate acquire failed for session %s: %v", session.ID, err)
			session.setStatus(StatusFailed)
			return session.Status()
		}

		if err := d.performAction(ctx, action); err != nil {
			d.logger.Errorf("Page action failed for session %s: %v", session.ID, err)
			session.setStatus(StatusFailed)
			return session.Status()
		}

		count, gotNew := buffer.WaitForNew(ctx, seen, policy.QuietTimeout)
		if gotNew {
			d.logger.Debugf("Session %s iteration %d: %d new record(s), %d total",
				session.ID, iteration, count-seen, count)
			seen = count
			quietRounds = 0
		} else {
			quietRounds++
			d.logger.Debugf("Session %s iteration %d: quiet round %d/%d",
				session.ID, iteration, quietRounds, policy.MaxQuietRounds)
		}

		if policy.MaxPages > 0 && seen-start >= policy.MaxPages {
			d.logger.Infof("Session %s reached max pages (%d)", session.ID, policy.MaxPages)
			break
		}
		if quietRounds >= policy.MaxQuietRounds {
			d.logger.Infof("Session %s quiet for %d rounds, stopping", session.ID, quietRounds)
			break
		}
		if last, ok := buffer.Last(); ok && policy.EndMarker(last.Body) {
			d.logger.Infof("Session %s saw end marker in latest payload", session.ID)
			break
		}
	}

	if buffer.Len() > 0 {
		session.setStatus(StatusComplete)
	} else {
		session.setStatus(StatusTimedOut)
	}
	return session.Status()
}

// performAction runs one scroll/click, retrying transient driver
// failures with a fixed backoff before giving up.
func (d *PaginationDriver) performAction(ctx context.Context, action PageAction) error {
	var lastErr error

	for attempt := 1; attempt <= d.retryAttempts; attempt++ {
		var err error
		switch action {
		case ActionClickLoadMore:
			err = d.pager.ClickLoadMore(ctx)
		default:
			err = d.pager.Scroll(ctx, d.scrollDelta)
		}
		if err == nil {
			return nil
		}

		lastErr = &TransientDriverError{Action: action, Err: err}
		if attempt < d.retryAttempts {
			d.logger.Warnf("Page action %s failed (attempt %d/%d): %v, retrying in %s",
				action, attempt, d.retryAttempts, err, d.retryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.retryDelay):
			}
		}
	}

	return lastErr
}
