// Package auth checks the token a display client presents in its hello.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator accepts or rejects a hello token.
type Validator interface {
	Validate(token string) error
}

// Open accepts any token, including none.
type Open struct{}

func (Open) Validate(string) error {
	return nil
}

// Tokens accepts any one of a fixed set of shared tokens.
type Tokens []string

func (t Tokens) Validate(token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	ok := 0
	for _, want := range t {
		ok |= subtle.ConstantTimeCompare([]byte(want), []byte(token))
	}
	if ok != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FromTokens returns Open when no non-blank token is configured.
func FromTokens(tokens []string) Validator {
	out := make(Tokens, 0, len(tokens))
	for _, tok := range tokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return Open{}
	}
	return out
}
