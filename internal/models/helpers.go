package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidAddress reports whether s looks like an Ethereum address:
// "0x" followed by exactly 40 hex characters.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ParseAmount parses a positive decimal amount in the chain's native unit.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("amount must be greater than 0")
	}
	return v, nil
}

func GenerateUserID() string {
	return uuid.New().String()
}

func GenerateSessionID() string {
	return fmt.Sprintf("session_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}
