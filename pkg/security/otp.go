package security

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// OTPDigits is the width of every one-time code.
const OTPDigits = 6

// GenerateOTP produces a zero-padded numeric one-time code using crypto/rand.
func GenerateOTP() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	n := binary.BigEndian.Uint64(buf[:]) % 1_000_000
	return fmt.Sprintf("%06d", n), nil
}

// OTPMatches compares a submitted code against the stored one. Both sides are
// trimmed so numeric client encodings ("123456 ", 123456) never cause a false
// negative. A nil stored code always fails: no code was ever issued.
func OTPMatches(stored *string, submitted string, expiresAt *time.Time, now time.Time) bool {
	if stored == nil || expiresAt == nil {
		return false
	}
	if now.After(*expiresAt) {
		return false
	}
	return strings.TrimSpace(*stored) == strings.TrimSpace(submitted)
}
