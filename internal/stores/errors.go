package stores

import "errors"

// ErrRedisUnavailable wraps every Redis failure returned by this package.
var ErrRedisUnavailable = errors.New("ephemeral store unavailable")
