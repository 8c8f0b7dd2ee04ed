// Package id generates the prefixed identifiers used for documents and notes.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the identifiers the server mints.
const (
	PrefixBookCase     = "bc"
	PrefixNote         = "note"
	PrefixSubscription = "sub"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "note-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Generator mints prefixed IDs. Pure code takes a Generator so tests can supply
// deterministic IDs.
type Generator func(prefix string) (string, error)

// Default is the NanoID backed generator.
var Default Generator = Generate
