package limiters

import "errors"

var (
	// ErrRequestLimited reports that the request window is exhausted.
	ErrRequestLimited = errors.New("otp request window exhausted")
	// ErrLimiterUnavailable wraps Redis failures.
	ErrLimiterUnavailable = errors.New("limiter backend unavailable")
)
