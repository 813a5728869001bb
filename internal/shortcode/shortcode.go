// Package shortcode generates and validates short codes.
package shortcode

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

// DefaultLength is the length of generated codes.
const DefaultLength = 6

// MaxAliasLength bounds custom aliases.
const MaxAliasLength = 64

// Alphabet excludes glyphs that are easy to confuse when read aloud or
// retyped: 0/O and 1/l/I.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Generate returns a random code of the given length drawn uniformly from
// Alphabet. It does not check for collisions.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	code := make([]byte, length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}

// InAlphabet reports whether every character of code is from Alphabet.
func InAlphabet(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}
	return true
}

// ValidAlias reports whether code is usable as a custom alias or lookup key.
func ValidAlias(code string) bool {
	return len(code) <= MaxAliasLength && aliasPattern.MatchString(code)
}
