package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fake checker you can control
type fakeChecker struct {
	results []CheckResult
	i       int
}

func (f *fakeChecker) Check(ctx context.Context, target string) CheckResult {
	if f.i >= len(f.results) {
		f.i++
		return CheckResult{Err: errors.New("no more"), Message: "no more"}
	}
	r := f.results[f.i]
	f.i++
	return r
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func transportErr(msg string) CheckResult {
	return CheckResult{Err: errors.New(msg), Message: msg}
}

func newTestRetry(f Checker, rec *sleepRecorder) *RetryChecker {
	rc := NewRetryChecker(f, DefaultRetryPolicy(), nil)
	rc.Sleep = rec.sleep
	rc.DNS = nil
	return rc
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	for n := 1; n <= 4; n++ {
		if got, want := p.Backoff(n), time.Duration(n)*time.Second; got != want {
			t.Fatalf("Backoff(%d)=%v want %v", n, got, want)
		}
	}
}

func TestRetryChecker_SucceedsAfterRetry(t *testing.T) {
	f := &fakeChecker{
		results: []CheckResult{
			transportErr("connection refused"),
			{StatusCode: 200, Message: "200 OK"},
		},
	}
	rec := &sleepRecorder{}
	out := newTestRetry(f, rec).Probe(context.Background(), "https://example.com")

	if !out.Success || out.StatusCode != 200 {
		t.Fatalf("expected success after retry, got %+v", out)
	}
	if out.Attempts != 2 || f.i != 2 {
		t.Fatalf("want 2 attempts, got %d (calls=%d)", out.Attempts, f.i)
	}
	if len(rec.waits) != 1 || rec.waits[0] != time.Second {
		t.Fatalf("want one 1s backoff, got %v", rec.waits)
	}
}

func TestRetryChecker_StopsOnFirstHTTPResponseEvenIfUnsuccessful(t *testing.T) {
	f := &fakeChecker{
		results: []CheckResult{
			{StatusCode: 503, Message: "503 Service Unavailable"},
			{StatusCode: 200, Message: "200 OK"},
		},
	}
	rec := &sleepRecorder{}
	out := newTestRetry(f, rec).Probe(context.Background(), "https://example.com")

	if out.Success || out.StatusCode != 503 {
		t.Fatalf("want 503 failure without retry, got %+v", out)
	}
	if out.Attempts != 1 || f.i != 1 || len(rec.waits) != 0 {
		t.Fatalf("non-2xx must not be retried: attempts=%d calls=%d waits=%v", out.Attempts, f.i, rec.waits)
	}
}

func TestRetryChecker_AllTransportFailuresYieldSentinel(t *testing.T) {
	f := &fakeChecker{} // every call fails
	rec := &sleepRecorder{}
	out := newTestRetry(f, rec).Probe(context.Background(), "https://example.com")

	if out.Success || out.StatusCode != SentinelStatus {
		t.Fatalf("want sentinel %d, got %+v", SentinelStatus, out)
	}
	if out.Attempts != 5 || f.i != 5 {
		t.Fatalf("want exactly 5 attempts, got %d (calls=%d)", out.Attempts, f.i)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}
	if len(rec.waits) != len(want) {
		t.Fatalf("want backoffs %v, got %v", want, rec.waits)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Fatalf("backoff %d: want %v got %v", i, want[i], rec.waits[i])
		}
	}
	if out.LastErr == nil {
		t.Fatalf("expected last transport error to be kept")
	}
}

func TestRetryChecker_CancelledDuringBackoff(t *testing.T) {
	f := &fakeChecker{}
	rc := NewRetryChecker(f, DefaultRetryPolicy(), nil)
	rc.DNS = nil
	rc.Sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	out := rc.Probe(context.Background(), "https://example.com")
	if out.Success || out.StatusCode != SentinelStatus {
		t.Fatalf("want sentinel on cancel, got %+v", out)
	}
	if out.Attempts != 1 || f.i != 1 {
		t.Fatalf("want one attempt before cancel, got %d (calls=%d)", out.Attempts, f.i)
	}
}

func TestAttemptState_Transitions(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, BackoffUnit: time.Millisecond}
	st := newAttemptState()

	if wait := st.advance(transportErr("x"), p); st.done || wait != time.Millisecond || st.attempt != 2 {
		t.Fatalf("after first failure: done=%v wait=%v attempt=%d", st.done, wait, st.attempt)
	}
	if wait := st.advance(transportErr("y"), p); !st.done || wait != 0 {
		t.Fatalf("after last failure: done=%v wait=%v", st.done, wait)
	}
	if r := st.result(); r.StatusCode != SentinelStatus || r.Attempts != 2 || r.Success {
		t.Fatalf("unexpected terminal result %+v", r)
	}
}

func TestCheckDNS_ShortCircuits(t *testing.T) {
	if s := CheckDNS(context.Background(), ""); s.Class != DNSInvalidName {
		t.Fatalf("empty host: got %q", s.Class)
	}
	if s := CheckDNS(context.Background(), "127.0.0.1"); s.Class != DNSIPLiteral {
		t.Fatalf("ip literal: got %q", s.Class)
	}
}

func TestRetryChecker_CancelledIsNotReportedAsExhausted(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeChecker{}
	rc := NewRetryChecker(f, DefaultRetryPolicy(), zap.New(core))
	dnsCalls := 0
	rc.DNS = func(context.Context, string) DNSStatus { dnsCalls++; return DNSStatus{Class: DNSResolves} }
	rc.Sleep = func(context.Context, time.Duration) error { cancel(); return context.Canceled }

	rc.Probe(ctx, "https://example.com")

	if n := logs.FilterMessage("probe_exhausted").Len(); n != 0 {
		t.Fatalf("cancelled probe logged probe_exhausted %d times", n)
	}
	if logs.FilterMessage("probe_cancelled").Len() != 1 {
		t.Fatalf("want one probe_cancelled entry, got %v", logs.All())
	}
	if dnsCalls != 0 {
		t.Fatalf("want no DNS lookup for a cancelled probe, got %d", dnsCalls)
	}
}

func TestRetryChecker_DNSClassificationOnlyAtDebug(t *testing.T) {
	for _, tc := range []struct {
		level   zapcore.Level
		wantDNS int
	}{
		{zap.InfoLevel, 0},
		{zap.DebugLevel, 1},
	} {
		core, logs := observer.New(tc.level)
		f := &fakeChecker{}
		rc := NewRetryChecker(f, RetryPolicy{MaxAttempts: 2, BackoffUnit: time.Millisecond}, zap.New(core))
		rc.Sleep = (&sleepRecorder{}).sleep
		dnsCalls := 0
		rc.DNS = func(context.Context, string) DNSStatus { dnsCalls++; return DNSStatus{Class: DNSNXDomain} }

		out := rc.Probe(context.Background(), "https://nowhere.example")

		if out.StatusCode != SentinelStatus {
			t.Fatalf("level %v: want sentinel, got %+v", tc.level, out)
		}
		if logs.FilterMessage("probe_exhausted").Len() != 1 {
			t.Fatalf("level %v: want one probe_exhausted entry", tc.level)
		}
		if dnsCalls != tc.wantDNS {
			t.Fatalf("level %v: want %d DNS lookups, got %d", tc.level, tc.wantDNS, dnsCalls)
		}
	}
}
