// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package mirror

import (
	"strings"
	"testing"
)

// TestGenerateToken_LengthAndAlphabet verifies shape constraints.
func TestGenerateToken_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 16, 48, 128} {
		token, err := GenerateToken(n)
		if err != nil {
			t.Fatalf("GenerateToken(%d) failed: %v", n, err)
		}
		if len(token) != n {
			t.Errorf("Expected length %d, got %d", n, len(token))
		}
		for _, r := range token {
			if !strings.ContainsRune(TokenAlphabet, r) {
				t.Errorf("Token contains %q outside the alphabet", r)
			}
		}
	}
}

// TestGenerateToken_InvalidLength verifies rejection of non-positive lengths.
func TestGenerateToken_InvalidLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1} {
		if _, err := GenerateToken(n); err == nil {
			t.Errorf("Expected error for length %d", n)
		}
	}
}

// TestGenerateToken_Uniqueness generates a batch and expects no collisions.
// With 62^48 possible tokens a single collision here would indicate a broken
// random source.
func TestGenerateToken_Uniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token, err := GenerateToken(48)
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("Duplicate token generated: %s", token)
		}
		seen[token] = struct{}{}
	}
}

// TestTokenAlphabet_Size pins the 62-symbol alphabet.
func TestTokenAlphabet_Size(t *testing.T) {
	t.Parallel()

	if len(TokenAlphabet) != 62 {
		t.Errorf("Expected 62 symbols, got %d", len(TokenAlphabet))
	}
	unique := make(map[rune]struct{})
	for _, r := range TokenAlphabet {
		unique[r] = struct{}{}
	}
	if len(unique) != 62 {
		t.Errorf("Alphabet has repeated symbols: %d unique", len(unique))
	}
}
