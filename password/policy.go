package password

import (
	"fmt"
	"unicode"
)

// MinLength is the floor for every Policy.
const MinLength = 8

// Strength failure reasons, in the order they are checked.
const (
	ReasonTooShort    = "password must be at least 8 characters long"
	ReasonNoUppercase = "password must contain at least one uppercase letter"
	ReasonNoLowercase = "password must contain at least one lowercase letter"
	ReasonNoDigit     = "password must contain at least one digit"
	ReasonTooLong     = "password must be at most 1024 bytes long"
)

// StrengthError reports the first rule a password failed.
type StrengthError struct {
	Reason string
}

func (e *StrengthError) Error() string {
	return e.Reason
}

// Policy is the password strength policy. The zero value enforces the
// default minimum length and the hasher's default size cap.
type Policy struct {
	MinLength int
	// MaxBytes matches the Hasher's MaxPasswordBytes. Zero means
	// DefaultMaxPasswordBytes.
	MaxBytes int
}

// Validate checks password against the policy: minimum length, byte size,
// then uppercase, lowercase and digit. Only the first failing rule is
// reported.
func (p Policy) Validate(password string) error {
	minLen := p.MinLength
	if minLen < MinLength {
		minLen = MinLength
	}

	if len([]rune(password)) < minLen {
		if minLen == MinLength {
			return &StrengthError{Reason: ReasonTooShort}
		}
		return &StrengthError{Reason: fmt.Sprintf("password must be at least %d characters long", minLen)}
	}

	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPasswordBytes
	}
	if len(password) > maxBytes {
		if maxBytes == DefaultMaxPasswordBytes {
			return &StrengthError{Reason: ReasonTooLong}
		}
		return &StrengthError{Reason: fmt.Sprintf("password must be at most %d bytes long", maxBytes)}
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !upper:
		return &StrengthError{Reason: ReasonNoUppercase}
	case !lower:
		return &StrengthError{Reason: ReasonNoLowercase}
	case !digit:
		return &StrengthError{Reason: ReasonNoDigit}
	}
	return nil
}

// ValidateStrength applies the default Policy.
func ValidateStrength(password string) error {
	return Policy{}.Validate(password)
}
