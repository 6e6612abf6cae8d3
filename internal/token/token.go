// Package token mints the unguessable strings that act as the only
// credential for a poll. Possessing a token is the whole of authentication.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// Bytes is the entropy of one token: 192 bits.
const Bytes = 24

// ErrExhausted is returned by Set.New when the random source keeps producing
// duplicates, which only happens with a broken reader.
var ErrExhausted = errors.New("token: could not mint a unique token")

// maxAttempts bounds the duplicate-retry loop in Set.New.
const maxAttempts = 8

// Generator mints tokens from a random source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewGeneratorFrom returns a Generator reading from r. Tests use it to make
// minting deterministic.
func NewGeneratorFrom(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// New returns a URL-safe, unpadded base64 token.
func (g *Generator) New() (string, error) {
	b := make([]byte, Bytes)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Set mints tokens that are pairwise distinct within one poll.
type Set struct {
	gen  *Generator
	seen map[string]struct{}
}

// NewSet starts an empty Set backed by g.
func (g *Generator) NewSet() *Set {
	return &Set{gen: g, seen: make(map[string]struct{})}
}

// New returns a token not yet returned by this Set.
func (s *Set) New() (string, error) {
	for range maxAttempts {
		t, err := s.gen.New()
		if err != nil {
			return "", err
		}
		if _, dup := s.seen[t]; dup {
			continue
		}
		s.seen[t] = struct{}{}
		return t, nil
	}
	return "", ErrExhausted
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
