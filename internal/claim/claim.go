package claim

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf8"
)

// Length bounds for an acceptable claim, counted in runes
const (
	MinLength = 10
	MaxLength = 10000
)

var (
	ErrEmpty    = errors.New("claim text is empty")
	ErrTooShort = errors.New("claim text is too short")
	ErrTooLong  = errors.New("claim text is too long")
)

// Claim is a single factual statement to verify. The normalized form drives
// cache keying; the raw text is what providers and scoring see.
type Claim struct {
	Text       string
	Normalized string
}

// New validates the raw text and derives the normalized form
func New(text string) (*Claim, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmpty
	}
	switch n := utf8.RuneCountInString(trimmed); {
	case n < MinLength:
		return nil, ErrTooShort
	case n > MaxLength:
		return nil, ErrTooLong
	}
	return &Claim{
		Text:       trimmed,
		Normalized: Normalize(trimmed),
	}, nil
}

// Normalize lower-cases text and collapses whitespace runs to single spaces
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Key derives the result-cache key from the normalized text
func (c *Claim) Key() string {
	h := sha256.New()
	h.Write([]byte(c.Normalized))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
