package sessions

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

// Join codes avoid ambiguous glyphs (0/O, 1/I/L) so they survive being
// read aloud from a projector.
const (
	joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	joinCodeLength   = 6

	maxCodeAttempts = 10
)

// ErrJoinCodeExhausted is returned when no free join code could be found
// after the maximum number of attempts.
var ErrJoinCodeExhausted = errors.New("could not allocate a unique join code")

// CodeChecker reports whether a join code is already held by a live
// (non-ended) session.
type CodeChecker interface {
	LiveJoinCodeExists(ctx context.Context, code string) (bool, error)
}

// unbiasedLimit is the largest multiple of the alphabet size that fits in
// a byte. Bytes at or above it are rejected; mapping them through modulo
// would overweight the first 256 mod 31 symbols.
const unbiasedLimit = 256 - 256%len(joinCodeAlphabet)

// GenerateJoinCode returns a random code drawn uniformly from the
// unambiguous alphabet.
func GenerateJoinCode() (string, error) {
	code := make([]byte, 0, joinCodeLength)
	buf := make([]byte, joinCodeLength)
	for len(code) < joinCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		code = appendCodeSymbols(code, buf)
	}
	return string(code), nil
}

// appendCodeSymbols maps random bytes onto alphabet symbols, skipping
// rejected bytes, until the code is full or the bytes run out.
func appendCodeSymbols(code, random []byte) []byte {
	for _, b := range random {
		if len(code) == joinCodeLength {
			break
		}
		if int(b) >= unbiasedLimit {
			continue
		}
		code = append(code, joinCodeAlphabet[int(b)%len(joinCodeAlphabet)])
	}
	return code
}

// AllocateJoinCode generates codes until one is free among live sessions,
// giving up after maxCodeAttempts tries.
func AllocateJoinCode(ctx context.Context, checker CodeChecker) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := GenerateJoinCode()
		if err != nil {
			return "", err
		}
		exists, err := checker.LiveJoinCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrJoinCodeExhausted
}
