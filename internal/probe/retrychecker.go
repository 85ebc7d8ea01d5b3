// internal/probe/retrychecker.go
package probe

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds a probe: MaxAttempts tries in total, waiting
// Backoff(n) after failed attempt n before the next one.
type RetryPolicy struct {
	MaxAttempts int
	BackoffUnit time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BackoffUnit: time.Second}
}

// Backoff returns the wait after the 1-based attempt n, i.e. n × unit.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(attempt) * p.BackoffUnit
}

// Result is the terminal state of a probe.
type Result struct {
	StatusCode int
	Success    bool
	Attempts   int
	// LastErr is the transport error of the final attempt, if it had one.
	LastErr error
}

// attemptState is the probe state machine: Attempting(n) until a response
// arrives (Done(status)) or attempt MaxAttempts fails (Done(SentinelStatus)).
type attemptState struct {
	attempt    int
	done       bool
	statusCode int
	lastErr    error
}

func newAttemptState() *attemptState {
	return &attemptState{attempt: 1}
}

// advance consumes the result of the current attempt. When the state is not
// terminal afterwards, it returns the backoff to sleep before the next attempt.
func (s *attemptState) advance(res CheckResult, p RetryPolicy) time.Duration {
	if res.Err == nil {
		s.done = true
		s.statusCode = res.StatusCode
		s.lastErr = nil
		return 0
	}
	s.lastErr = res.Err
	if s.attempt >= p.MaxAttempts {
		s.done = true
		s.statusCode = SentinelStatus
		return 0
	}
	wait := p.Backoff(s.attempt)
	s.attempt++
	return wait
}

func (s *attemptState) result() Result {
	return Result{
		StatusCode: s.statusCode,
		Success:    s.lastErr == nil && Successful(s.statusCode),
		Attempts:   s.attempt,
		LastErr:    s.lastErr,
	}
}

// RetryChecker retries transport failures only. Any HTTP response ends the
// probe immediately, including 4xx/5xx.
type RetryChecker struct {
	Inner  Checker
	Policy RetryPolicy
	Logger *zap.Logger

	// Sleep waits between attempts; nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// DNS, when set, classifies the host of a probe that exhausted its attempts.
	DNS func(ctx context.Context, domain string) DNSStatus
}

func NewRetryChecker(inner Checker, policy RetryPolicy, logger *zap.Logger) *RetryChecker {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryChecker{
		Inner:  inner,
		Policy: policy,
		Logger: logger,
		DNS:    CheckDNS,
	}
}

func (r *RetryChecker) Probe(ctx context.Context, target string) Result {
	policy := r.Policy
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	st := newAttemptState()
	cancelled := false
	for {
		res := r.Inner.Check(ctx, target)
		wait := st.advance(res, policy)
		if st.done {
			break
		}
		log.Debug("probe_retry",
			zap.String("url", target),
			zap.Int("attempt", st.attempt-1),
			zap.Duration("backoff", wait),
			zap.Error(res.Err),
		)
		if err := sleep(ctx, wait); err != nil {
			// shutting down: give up with what we have
			st.attempt--
			st.done = true
			st.statusCode = SentinelStatus
			cancelled = true
			break
		}
	}

	out := st.result()
	if cancelled || ctx.Err() != nil {
		log.Debug("probe_cancelled", zap.String("url", target), zap.Int("attempts", out.Attempts))
		return out
	}
	if out.LastErr != nil {
		log.Warn("probe_exhausted",
			zap.String("url", target),
			zap.Int("attempts", out.Attempts),
			zap.Error(out.LastErr),
		)
		// Runs inside the caller's probe slot; debug only.
		if r.DNS != nil && log.Core().Enabled(zap.DebugLevel) {
			dns := r.DNS(ctx, extractHost(target))
			log.Debug("probe_dns", zap.String("url", target), zap.String("dns_class", dns.Class))
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
