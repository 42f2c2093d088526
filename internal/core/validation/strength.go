package validation

import (
	"unicode"
	"unicode/utf8"
)

// StrengthLabel is the advisory tier shown under the password field.
type StrengthLabel string

const (
	StrengthWeak   StrengthLabel = "Weak"
	StrengthFair   StrengthLabel = "Fair"
	StrengthGood   StrengthLabel = "Good"
	StrengthStrong StrengthLabel = "Strong"
)

type Strength struct {
	Score int           `json:"score"`
	Label StrengthLabel `json:"label"`
}

// PasswordStrength scores a password from 0 to 5. It never blocks submission.
func PasswordStrength(password string) Strength {
	score := 0
	n := utf8.RuneCountInString(password)
	if n >= MinPasswordLength {
		score++
	}
	if n >= 12 {
		score++
	}

	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			symbol = true
		}
	}
	for _, ok := range []bool{upper, digit, symbol} {
		if ok {
			score++
		}
	}

	return Strength{Score: score, Label: labelFor(score)}
}

func labelFor(score int) StrengthLabel {
	switch {
	case score <= 1:
		return StrengthWeak
	case score == 2:
		return StrengthFair
	case score <= 4:
		return StrengthGood
	default:
		return StrengthStrong
	}
}
