package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
)

const (
	otpLowerBound = 100000
	otpSpan       = 900000
)

// NewOTPCode returns a uniformly distributed six digit code in [100000, 999999].
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	code := strconv.FormatInt(n.Int64()+otpLowerBound, 10)
	if len(code) != 6 {
		return "", errors.New("invalid otp generation length")
	}
	return code, nil
}

// HashOTP binds code to identity: HMAC-SHA256(secret, identity|code),
// base64url without padding.
func HashOTP(secret []byte, identity, code string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(identity))
	mac.Write([]byte{'|'})
	mac.Write([]byte(code))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// EqualDigest compares two encoded digests in constant time. Empty values never match.
func EqualDigest(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// TokenKey returns the hex SHA-256 of a bearer token, used to keep
// revocation keys bounded in size.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
