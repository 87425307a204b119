// Package validate rejects unusable input text before any capability is called.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"mindmapgen/internal/apperr"
)

const (
	DefaultMaxChars = 4000
	DefaultMinWords = 5
)

type Options struct {
	MaxChars int
	MinWords int
}

// Validator applies the input rules in order; the first failing rule wins.
type Validator struct {
	v        *validator.Validate
	maxChars int
	minWords int
}

func New(opts Options) *Validator {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.MinWords <= 0 {
		opts.MinWords = DefaultMinWords
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// The tag and function are constants, so a failure here is a programming error.
	if err := v.RegisterValidation("minwords", minWords); err != nil {
		panic(fmt.Sprintf("validate: register minwords: %v", err))
	}
	return &Validator{v: v, maxChars: opts.MaxChars, minWords: opts.MinWords}
}

// Validate returns text unchanged when it passes every rule.
func (val *Validator) Validate(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.EmptyInput, "Text is required")
	}
	// validator's max on strings counts runes, not bytes.
	if err := val.v.Var(text, fmt.Sprintf("max=%d", val.maxChars)); err != nil {
		return "", apperr.New(apperr.TooLong, fmt.Sprintf("Text exceeds maximum length of %d characters", val.maxChars))
	}
	if err := val.v.Var(text, fmt.Sprintf("minwords=%d", val.minWords)); err != nil {
		return "", apperr.New(apperr.TooShort, fmt.Sprintf("Text is too short (minimum %d words required)", val.minWords))
	}
	return text, nil
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func minWords(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return WordCount(fl.Field().String()) >= n
}
