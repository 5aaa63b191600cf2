package bankAuth

import (
	"context"
	"strings"
	"time"
)

// Purpose namespaces OTP state so signup and password-reset challenges for the
// same identity never read each other's counters or secrets.
type Purpose string

const (
	// PurposeSignup is used for proof-of-email before an account exists.
	PurposeSignup Purpose = "signup-otp"
	// PurposeReset is used for password reset on an established account.
	PurposeReset Purpose = "reset-otp"
)

// Role defines a public type used by bankAuth APIs.
//
// Role values are carried in the "roles" claim of issued tokens.
type Role string

const (
	// RoleAdmin grants administrative access.
	RoleAdmin Role = "ADMIN"
	// RoleEmployee is assigned to bank staff.
	RoleEmployee Role = "EMPLOYEE"
	// RoleCustomer is the default role for self-registered users.
	RoleCustomer Role = "CUSTOMER"
)

// ParseRole maps a case-insensitive role name to a Role.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEmployee:
		return RoleEmployee, true
	case RoleCustomer:
		return RoleCustomer, true
	default:
		return "", false
	}
}

// LockReason records which trigger locked an account, so the matching lock
// duration is applied when the lock is inspected later.
type LockReason string

const (
	// LockReasonNone is stored while the account is not locked.
	LockReasonNone LockReason = ""
	// LockReasonOTP marks a lock caused by too many wrong OTP codes.
	LockReasonOTP LockReason = "otp"
	// LockReasonPassword marks a lock caused by too many wrong passwords.
	LockReasonPassword LockReason = "password"
)

// User defines a public type used by bankAuth APIs.
//
// User is the durable account aggregate. Version is owned by the repository
// and advances on every successful update.
type User struct {
	ID           int64
	Version      int64
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string
	PasswordHash string
	BirthDate    time.Time
	Roles        []Role

	Enabled    bool
	Locked     bool
	LockedAt   *time.Time
	LockReason LockReason

	InvalidPasswordCounter int

	EligibleForPasswordReset bool
	EligibleAt               *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OTPRecord defines a public type used by bankAuth APIs.
//
// For PurposeSignup it is the pending verification keyed by identity and it
// carries its own lock fields. For PurposeReset it is keyed by UserID and the
// lock lives on the owning User.
type OTPRecord struct {
	ID           int64
	Version      int64
	Purpose      Purpose
	Identity     string
	UserID       int64
	OTPHash      string
	CreatedAt    time.Time
	Used         bool
	AttemptCount int
	Locked       bool
	LockedAt     *time.Time
}

// Principal is the narrow view of a User consumed by the token provider.
type Principal struct {
	username     string
	passwordHash string
	authorities  []string
}

// NewPrincipal builds a Principal from a User.
func NewPrincipal(u *User) Principal {
	if u == nil {
		return Principal{}
	}
	authorities := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		authorities = append(authorities, string(r))
	}
	return Principal{
		username:     u.Email,
		passwordHash: u.PasswordHash,
		authorities:  authorities,
	}
}

// Username returns the identity (email) of the principal.
func (p Principal) Username() string { return p.username }

// PasswordHash returns the stored credential digest.
func (p Principal) PasswordHash() string { return p.passwordHash }

// Authorities returns a copy of the role names.
func (p Principal) Authorities() []string {
	out := make([]string, len(p.authorities))
	copy(out, p.authorities)
	return out
}

// UserRepository defines the durable user store consumed by the engine.
//
// Implementations return ErrRecordNotFound for absent rows, ErrDuplicate for
// unique violations, and ErrVersionConflict when UpdateUser loses an
// optimistic-concurrency race. Every other error is treated as the store
// being unavailable.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailOrMobile(ctx context.Context, identifier string) (*User, error)
	ExistsByEmailOrMobile(ctx context.Context, email, mobile string) (bool, error)
	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
}

// OTPRepository defines the durable OTP audit store consumed by the engine.
//
// SaveOTP inserts when rec.ID is zero and otherwise performs an optimistic
// update guarded by rec.Version.
type OTPRepository interface {
	FindOTP(ctx context.Context, purpose Purpose, identity string) (*OTPRecord, error)
	SaveOTP(ctx context.Context, rec *OTPRecord) error
}

// Notifier delivers messages out of band. Send must not block on delivery.
type Notifier interface {
	Send(recipient, body, subject string)
}

// CredentialVerifier hashes and checks passwords.
type CredentialVerifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// MessageResponse is returned by every operation that only reports an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthResponse is returned by Login. ExpiresIn is the access token expiry in
// epoch seconds.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// SignupRequest carries the account fields submitted after OTP verification.
type SignupRequest struct {
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string
	Password     string
	BirthDate    time.Time
	Role         Role
}

// AuthResult describes an authenticated bearer token.
type AuthResult struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// NormalizeIdentity trims and lower-cases an email identity. Every lookup and
// ephemeral key goes through it.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
