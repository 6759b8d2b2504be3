// Package idgen centralizes content hashing and deterministic ID derivation
// so every sink (vector, graph, status tracker) agrees on the same identity
// for a given (project, content) pair.
package idgen

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Namespace is the fixed UUID namespace for deterministic vector/point IDs.
// Changing this value would silently reassign every existing VectorPoint id.
var Namespace = uuid.MustParse("6f1c6e6a-6b6e-4f4e-9b8e-2a2f6f9d9c1e")

// ContentHash returns the BLAKE3 digest of normalized document bytes as a
// lowercase 64-character hex string.
func ContentHash(normalized []byte) string {
	sum := blake3.Sum256(normalized)
	return hex.EncodeToString(sum[:])
}

// DeterministicID derives the vector/graph identity for a (project,
// content_hash) pair: UUIDv5 over Namespace and "project:content_hash".
func DeterministicID(project, contentHash string) uuid.UUID {
	name := project + ":" + contentHash
	return uuid.NewSHA1(Namespace, []byte(name))
}

// NewDocumentID generates a fresh UUIDv4 document identifier.
func NewDocumentID() uuid.UUID {
	return uuid.New()
}

// NewCorrelationID generates a fresh UUIDv4 correlation identifier.
func NewCorrelationID() uuid.UUID {
	return uuid.New()
}
