package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Embedding stores a vector together with the hash of the text it was
// computed from. A hash mismatch against the current document text means the
// vector is stale.
// Stored as {"vector": [...], "hash": "..."}; a bare JSON array is accepted
// for files written before hashes existed.
type Embedding struct {
	Vector      []float32 `json:"vector"`
	ContentHash string    `json:"hash,omitempty"`
}

// NewEmbedding builds an Embedding for vector computed from text.
func NewEmbedding(vector []float32, text string) Embedding {
	return Embedding{Vector: vector, ContentHash: ContentHash(text)}
}

// ContentHash returns the hex SHA-256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FreshFor reports whether e can be used to score a document whose embedding
// text is text. Legacy entries without a hash are trusted.
func (e Embedding) FreshFor(text string) bool {
	if len(e.Vector) == 0 {
		return false
	}
	if e.ContentHash == "" {
		return true
	}
	return e.ContentHash == ContentHash(text)
}

func (e *Embedding) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var v []float32
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		e.Vector = v
		e.ContentHash = ""
		return nil
	}

	type plain Embedding
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*e = Embedding(p)
	return nil
}
