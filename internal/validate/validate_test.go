package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmapgen/internal/apperr"
)

func TestValidateRejections(t *testing.T) {
	val := New(Options{})
	cases := []struct {
		name string
		text string
		kind apperr.Kind
		msg  string
	}{
		{"empty", "", apperr.EmptyInput, "Text is required"},
		{"whitespace", " \n\t ", apperr.EmptyInput, "Text is required"},
		{"too long", strings.Repeat("a", 4001), apperr.TooLong, "Text exceeds maximum length of 4000 characters"},
		{"four words", "one two three four", apperr.TooShort, "Text is too short (minimum 5 words required)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := val.Validate(tc.text)
			require.Error(t, err)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tc.kind, ae.Kind)
			assert.Equal(t, tc.msg, ae.Public())
		})
	}
}

func TestValidateLengthRuleWinsOverWordRule(t *testing.T) {
	// A single 4001-char token is both too long and too short; length is checked first.
	_, err := New(Options{}).Validate(strings.Repeat("x", 4001))
	assert.Equal(t, apperr.TooLong, apperr.KindOf(err))
}

func TestValidateCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é ", 2000) // 4000 runes, 6000 bytes
	got, err := New(Options{}).Validate(text)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestValidateAccepts(t *testing.T) {
	text := "Solar wind and water power grids" // 6 words
	text = text + strings.Repeat(".", 50-len(text))
	require.Len(t, text, 50)
	got, err := New(Options{}).Validate(text)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	five := "alpha beta gamma delta epsilon"
	_, err = New(Options{}).Validate(five)
	assert.NoError(t, err)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 3, WordCount(" a\tb\n c "))
}

func TestNewRegistersWordRule(t *testing.T) {
	var val *Validator
	require.NotPanics(t, func() { val = New(Options{}) })

	// An unregistered tag makes Var fail on every input, valid or not.
	assert.NoError(t, val.v.Var("one two three four five", "minwords=5"))
	assert.Error(t, val.v.Var("one two", "minwords=5"))
}
