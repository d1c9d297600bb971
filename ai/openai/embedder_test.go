package openai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPrepareText(t *testing.T) {
	assert.Equal(t, "la reforma energética", prepareText("  la\nreforma \t energética \n"))
	assert.Equal(t, "", prepareText(" \n\t "))

	long := strings.Repeat("ñ", maxEmbedRunes+50)
	got := prepareText(long)
	assert.Equal(t, maxEmbedRunes, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got), "truncation must not split runes")
}
