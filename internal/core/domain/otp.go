package domain

import (
	"fmt"
	"strings"
	"time"
)

type ChannelID string

const (
	ChannelEmail ChannelID = "email"
	ChannelPhone ChannelID = "phone"
)

func (c ChannelID) IsValid() bool {
	return c == ChannelEmail || c == ChannelPhone
}

type OtpStatus string

const (
	OtpIdle      OtpStatus = "IDLE"
	OtpSending   OtpStatus = "SENDING"
	OtpSent      OtpStatus = "SENT"
	OtpVerifying OtpStatus = "VERIFYING"
	OtpVerified  OtpStatus = "VERIFIED"
	OtpError     OtpStatus = "ERROR"
)

const (
	CodeLength     = 6
	ResendCooldown = 60 * time.Second
)

// Digit is one optional slot of a one-time code.
type Digit struct {
	Value  uint8
	Filled bool
}

// CodeSlots is the fixed six-slot code entry.
type CodeSlots [CodeLength]Digit

// Set fills slot i with the digit character d.
func (c *CodeSlots) Set(i int, d rune) error {
	if i < 0 || i >= CodeLength {
		return fmt.Errorf("slot %d out of range", i)
	}
	if d < '0' || d > '9' {
		return fmt.Errorf("slot %d: %q is not a digit", i, d)
	}
	c[i] = Digit{Value: uint8(d - '0'), Filled: true}
	return nil
}

// Paste distributes the digits of s across the empty slots from slot 0 onwards.
// Non-digit characters are skipped and extra digits are dropped. It returns the slot to focus next.
func (c *CodeSlots) Paste(s string) int {
	digits := make([]uint8, 0, CodeLength)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, uint8(r-'0'))
		}
	}
	if len(digits) > CodeLength {
		digits = digits[:CodeLength]
	}
	for i := 0; i < CodeLength && len(digits) > 0; i++ {
		if c[i].Filled {
			continue
		}
		c[i] = Digit{Value: digits[0], Filled: true}
		digits = digits[1:]
	}
	return c.NextEmpty()
}

// Backspace clears slot i when it holds a digit. On an empty slot it only moves focus back.
func (c *CodeSlots) Backspace(i int) int {
	if i < 0 || i >= CodeLength {
		return 0
	}
	if c[i].Filled {
		c[i] = Digit{}
		return i
	}
	if i == 0 {
		return 0
	}
	return i - 1
}

// NextEmpty returns the first empty slot, or the last slot when all are filled.
func (c *CodeSlots) NextEmpty() int {
	for i, d := range c {
		if !d.Filled {
			return i
		}
	}
	return CodeLength - 1
}

func (c *CodeSlots) Complete() bool {
	for _, d := range c {
		if !d.Filled {
			return false
		}
	}
	return true
}

func (c *CodeSlots) Reset() {
	*c = CodeSlots{}
}

// String renders filled slots, with a space for empty ones.
func (c CodeSlots) String() string {
	var b strings.Builder
	for _, d := range c {
		if d.Filled {
			b.WriteByte('0' + d.Value)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// OtpState is the observable state of one verification channel.
type OtpState struct {
	Channel           ChannelID
	Identifier        string
	Status            OtpStatus
	Code              CodeSlots
	ResendAvailableAt time.Time
	LastError         string
}

// CanResend reports whether the cooldown has elapsed at now.
func (s OtpState) CanResend(now time.Time) bool {
	return !now.Before(s.ResendAvailableAt)
}

// ResendIn returns the remaining cooldown at now, never negative.
func (s OtpState) ResendIn(now time.Time) time.Duration {
	if d := s.ResendAvailableAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
