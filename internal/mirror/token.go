// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package mirror

import (
	"crypto/rand"
	"fmt"
)

// TokenAlphabet is the character set for mirror tokens: digits, uppercase,
// lowercase. URL-safe without escaping.
const TokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateToken returns a random token of length n drawn uniformly from
// TokenAlphabet using crypto/rand.
//
// Uniformity is preserved by rejection sampling: bytes that would wrap the
// 62-character alphabet unevenly are discarded.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}

	// Largest multiple of len(TokenAlphabet) that fits in a byte.
	limit := byte(256 - 256%len(TokenAlphabet))

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
