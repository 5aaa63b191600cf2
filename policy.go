package bankAuth

import "unicode/utf8"

// PasswordPolicyMessage is the user-facing description of the password policy.
const PasswordPolicyMessage = "Password must start with an uppercase letter, be at least 8 characters long, and include at least one number and one special character."

// PasswordMeetsPolicy reports whether p starts with an uppercase ASCII letter,
// is at least 8 characters long and contains a digit and a character that is
// neither a letter nor a digit.
func PasswordMeetsPolicy(p string) bool {
	if utf8.RuneCountInString(p) < 8 {
		return false
	}
	if p[0] < 'A' || p[0] > 'Z' {
		return false
	}
	var digit, special bool
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		default:
			special = true
		}
	}
	return digit && special
}

// CheckPasswordPolicy returns a KindValidation error when p fails the policy.
func CheckPasswordPolicy(p string) error {
	if !PasswordMeetsPolicy(p) {
		return newError(KindValidation, PasswordPolicyMessage)
	}
	return nil
}
