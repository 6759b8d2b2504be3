package domain

import "strings"

// Normalize produces the canonical byte form of document content that
// content_hash is computed over: trailing whitespace trimmed per line,
// line endings normalized to "\n". Two byte-identical-after-normalization
// submissions must hash identically (I4 idempotence).
func Normalize(content string) []byte {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return []byte(strings.Join(lines, "\n"))
}

// IsUnchanged reports whether a document's enrichment already reflects its
// current content. The producer short-circuits on it, and the vector stage
// skips re-embedding when it holds.
func IsUnchanged(d Document) bool {
	return d.EnrichmentStatus == EnrichmentCompleted &&
		d.EnrichmentContentHash != "" &&
		d.EnrichmentContentHash == d.ContentHash
}
