package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff renders the unified diff between two canonical contents.
// hasPrev false means this is the first version; the diff is empty.
func unifiedDiff(prev, next string, hasPrev bool) (string, error) {
	if !hasPrev {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev),
		B:        difflib.SplitLines(next),
		FromFile: "previous_version",
		ToFile:   "new_version",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("compute unified diff: %w", err)
	}
	return text, nil
}

// contentHash computes the SHA-256 hex digest of a canonical content string.
func contentHash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
