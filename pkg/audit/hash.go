package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PayloadHash computes the SHA-256 hex digest of the canonical JSON form of
// payload. Canonicalization round-trips through a generic value so that map
// key order never influences the digest.
func PayloadHash(payload any) (string, error) {
	if payload == nil {
		return hashBytes(nil), nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("canonicalize audit payload: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("marshal canonical payload: %w", err)
	}

	return hashBytes(canonical), nil
}

// StateHash computes the SHA-256 hex digest of "prev->new". Returns "" when
// either side is empty; non-transition actions carry no state hash.
func StateHash(prev, next string) string {
	if prev == "" || next == "" {
		return ""
	}
	return hashBytes([]byte(prev + "->" + next))
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
