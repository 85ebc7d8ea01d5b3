package probe

import "context"

// SentinelStatus is recorded when every attempt failed at the transport level.
const SentinelStatus = 502

// CheckResult holds the outcome of a single attempt.
// Err is set only for transport failures (timeout, refused, DNS); any HTTP
// response, whatever its status, leaves Err nil.
type CheckResult struct {
	StatusCode int     `json:"status_code"`
	Message    string  `json:"message"`
	LatencyMS  float64 `json:"latency_ms,omitempty"`
	Err        error   `json:"-"`
}

// Checker performs one attempt against a target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

// Successful reports whether a status code counts as "up" (2xx and 3xx).
func Successful(statusCode int) bool {
	return statusCode >= 200 && statusCode < 400
}
