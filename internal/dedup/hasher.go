// Package dedup provides content fingerprinting and duplicate
// classification for imported messages.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeContent prepares message content for hashing: lowercase,
// collapse runs of whitespace to a single space, trim. Two messages that
// differ only in whitespace or casing hash identically.
func NormalizeContent(content string) string {
	if content == "" {
		return ""
	}
	normalized := strings.ToLower(content)
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// Hash returns the hex SHA-256 digest of a message's role and normalized
// content. Pure and deterministic across process restarts; re-importing
// the same file always reproduces the same digests. Conversation scoping
// is applied by the engine, which only compares hashes within one
// conversation's stored set.
func Hash(role, content string) string {
	sum := sha256.Sum256([]byte(role + "\x00" + NormalizeContent(content)))
	return hex.EncodeToString(sum[:])
}
