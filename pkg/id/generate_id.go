package id

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var reID32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

// Valid reports whether s has the NewID32 shape. Borrower, lender and
// investor ids all use it.
func Valid(s string) bool { return reID32.MatchString(s) }
