package shortcode_test

import (
	"strings"
	"testing"

	"github.com/doaamohamed88/shortLinks/internal/shortcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	for _, length := range []int{1, 6, 12} {
		code, err := shortcode.Generate(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.True(t, shortcode.InAlphabet(code), "code %q", code)
	}
}

func TestGenerate_DefaultLength(t *testing.T) {
	code, err := shortcode.Generate(0)
	require.NoError(t, err)
	assert.Len(t, code, shortcode.DefaultLength)
}

func TestAlphabet_HasNoAmbiguousGlyphs(t *testing.T) {
	for _, c := range "0O1lI" {
		assert.False(t, strings.ContainsRune(shortcode.Alphabet, c), "alphabet contains %q", c)
	}
	seen := map[rune]bool{}
	for _, c := range shortcode.Alphabet {
		assert.False(t, seen[c], "duplicate %q", c)
		seen[c] = true
	}
}

func TestGenerate_Spread(t *testing.T) {
	codes := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code, err := shortcode.Generate(shortcode.DefaultLength)
		require.NoError(t, err)
		codes[code] = true
	}
	// 57^6 possible codes, collisions in 500 draws are vanishingly rare
	assert.Greater(t, len(codes), 495)
}

func TestValidAlias(t *testing.T) {
	valid := []string{"abc", "my-alias", "my_alias", "A1", "x", strings.Repeat("a", shortcode.MaxAliasLength)}
	invalid := []string{"", "has space", "emoji😀", "slash/", "dot.", "q?x", "عربي", strings.Repeat("a", shortcode.MaxAliasLength+1)}

	for _, code := range valid {
		assert.True(t, shortcode.ValidAlias(code), code)
	}
	for _, code := range invalid {
		assert.False(t, shortcode.ValidAlias(code), code)
	}
}
