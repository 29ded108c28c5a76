// Package security analyzes the health of a vault's stored credentials:
// password strength and password reuse across entries.
package security

// PasswordStrength represents the strength level of a password.
type PasswordStrength int

const (
	// PasswordWeak indicates an insecure password (less than 8 characters).
	PasswordWeak PasswordStrength = iota
	// PasswordFair indicates a minimally acceptable password.
	PasswordFair
	// PasswordGood indicates a good password.
	PasswordGood
	// PasswordStrong indicates a strong password.
	PasswordStrong
)

// String returns a human-readable representation of the password strength.
func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "Weak"
	case PasswordFair:
		return "Fair"
	case PasswordGood:
		return "Good"
	case PasswordStrong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// EvaluatePassword rates a human-chosen password.
// Length is the primary factor per NIST SP 800-63B: no composition rules,
// minimum 8 characters, longer is better.
func EvaluatePassword(value string) PasswordStrength {
	length := len(value)

	switch {
	case length >= 20:
		return PasswordStrong
	case length >= 14:
		return PasswordGood
	case length >= 8:
		return PasswordFair
	default:
		return PasswordWeak
	}
}

// EvaluateToken rates a machine-generated secret such as an API token.
// For random strings length correlates directly with entropy:
// 32+ characters of alphanumeric material is roughly 128 bits.
func EvaluateToken(value string) PasswordStrength {
	length := len(value)

	switch {
	case length >= 32:
		return PasswordStrong
	case length >= 20:
		return PasswordGood
	case length >= 16:
		return PasswordFair
	default:
		return PasswordWeak
	}
}
