// Package id generates the opaque record identifiers used for notes and
// transaction records.
package id

import (
	"fmt"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// suffixAlphabet keeps ids lowercase so they sort and compare predictably.
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength   = 7
)

// Generate creates a prefixed id made of the current millisecond timestamp
// and a random suffix.
// Format: prefix-millis-suffix (e.g., "note-1718000000000-k3x9q2m").
//
// The timestamp keeps ids roughly ordered by creation; the suffix separates
// records created within the same millisecond.
func Generate(prefix string) (string, error) {
	return GenerateAt(prefix, time.Now())
}

// GenerateAt is like Generate but uses the supplied instant for the timestamp part.
func GenerateAt(prefix string, at time.Time) (string, error) {
	suffix, err := gonanoid.Generate(suffixAlphabet, suffixLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + suffix, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when failure should crash the program (e.g., fixtures and seeding).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
