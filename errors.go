package bankAuth

import "errors"

// ErrorKind classifies every failure returned by the engine.
//
// The HTTP surface maps kinds to status codes; callers branch on the kind
// (or on the matching sentinel via errors.Is) instead of on message text.
type ErrorKind uint8

const (
	// KindUnknown is used for errors that did not originate in the engine.
	KindUnknown ErrorKind = iota
	// KindValidation marks malformed input.
	KindValidation
	// KindNotFound marks a missing account or OTP record.
	KindNotFound
	// KindAlreadyExists marks a duplicate account.
	KindAlreadyExists
	// KindRateLimited marks an exhausted request window.
	KindRateLimited
	// KindCooldownActive marks a resend attempted before the cooldown elapsed.
	KindCooldownActive
	// KindLocked marks an identity inside its lock duration.
	KindLocked
	// KindExpired marks an OTP past its validity window.
	KindExpired
	// KindAlreadyUsed marks an OTP that already verified once.
	KindAlreadyUsed
	// KindInvalidOTP marks an OTP mismatch below the lock threshold.
	KindInvalidOTP
	// KindInvalidCredentials marks a wrong password.
	KindInvalidCredentials
	// KindUnauthorized marks a missing, invalid, or revoked token.
	KindUnauthorized
	// KindNotVerified marks a step attempted without its OTP proof.
	KindNotVerified
	// KindForbidden marks an authenticated caller without the required role.
	KindForbidden
	// KindConflict marks a lost optimistic-concurrency race.
	KindConflict
	// KindStoreUnavailable marks an ephemeral or durable store failure.
	KindStoreUnavailable
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindValidation:         "validation",
	KindNotFound:           "not_found",
	KindAlreadyExists:      "already_exists",
	KindRateLimited:        "rate_limited",
	KindCooldownActive:     "cooldown_active",
	KindLocked:             "locked",
	KindExpired:            "expired",
	KindAlreadyUsed:        "already_used",
	KindInvalidOTP:         "invalid_otp",
	KindInvalidCredentials: "invalid_credentials",
	KindUnauthorized:       "unauthorized",
	KindNotVerified:        "not_verified",
	KindForbidden:          "forbidden",
	KindConflict:           "conflict",
	KindStoreUnavailable:   "store_unavailable",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var (
	// ErrValidation is matched by every KindValidation error.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is matched by every KindNotFound error.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is matched by every KindAlreadyExists error.
	ErrAlreadyExists = errors.New("already exists")
	// ErrRateLimited is matched by every KindRateLimited error.
	ErrRateLimited = errors.New("rate limited")
	// ErrCooldownActive is matched by every KindCooldownActive error.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrLocked is matched by every KindLocked error.
	ErrLocked = errors.New("locked")
	// ErrExpired is matched by every KindExpired error.
	ErrExpired = errors.New("otp expired")
	// ErrAlreadyUsed is matched by every KindAlreadyUsed error.
	ErrAlreadyUsed = errors.New("otp already used")
	// ErrInvalidOTP is matched by every KindInvalidOTP error.
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrInvalidCredentials is matched by every KindInvalidCredentials error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is matched by every KindUnauthorized error.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotVerified is matched by every KindNotVerified error.
	ErrNotVerified = errors.New("not verified")
	// ErrForbidden is matched by every KindForbidden error.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is matched by every KindConflict error.
	ErrConflict = errors.New("conflict")
	// ErrStoreUnavailable is matched by every KindStoreUnavailable error.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Durable store adapters return these so the engine can classify failures
// without knowing the driver.
var (
	// ErrRecordNotFound reports that the requested row does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionConflict reports that an optimistic update matched no row at the expected version.
	ErrVersionConflict = errors.New("record version conflict")
	// ErrDuplicate reports a unique constraint violation on insert.
	ErrDuplicate = errors.New("duplicate record")
)

var kindSentinels = [...]error{
	KindUnknown:            nil,
	KindValidation:         ErrValidation,
	KindNotFound:           ErrNotFound,
	KindAlreadyExists:      ErrAlreadyExists,
	KindRateLimited:        ErrRateLimited,
	KindCooldownActive:     ErrCooldownActive,
	KindLocked:             ErrLocked,
	KindExpired:            ErrExpired,
	KindAlreadyUsed:        ErrAlreadyUsed,
	KindInvalidOTP:         ErrInvalidOTP,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindUnauthorized:       ErrUnauthorized,
	KindNotVerified:        ErrNotVerified,
	KindForbidden:          ErrForbidden,
	KindConflict:           ErrConflict,
	KindStoreUnavailable:   ErrStoreUnavailable,
}

// Error is a classified engine failure.
//
// Message is safe to show to end users. The wrapped cause (store errors,
// driver errors) is reachable through errors.Is/As for logging but never
// part of Message.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the internal cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if int(e.Kind) < len(kindSentinels) && kindSentinels[e.Kind] != nil {
		out = append(out, kindSentinels[e.Kind])
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// Cause returns the internal error that triggered e, if any.
func (e *Error) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// KindOf classifies err. Errors that did not come from the engine are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind, sentinel := range kindSentinels {
		if sentinel != nil && errors.Is(err, sentinel) {
			return ErrorKind(kind)
		}
	}
	return KindUnknown
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
